package service

import (
	"context"
	"io"
	"log/slog"

	"voicenet/internal/blob"
	"voicenet/internal/models"
	"voicenet/internal/repository"
	"voicenet/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
	blobs    blob.Store
}

func NewUserService(userRepo repository.UserRepository, blobs blob.Store) *UserService {
	return &UserService{userRepo: userRepo, blobs: blobs}
}

// Register creates an account with a unique username and a bcrypt
// password hash. The hash never leaves this layer.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if existing != nil {
		return nil, models.NewConflictError("username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Username: username,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.decorate(user)
	return user, nil
}

// Authenticate verifies credentials. It returns the same error for an
// unknown username and a wrong password so callers cannot probe which
// usernames exist.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("invalid credentials")
	}

	s.decorate(user)
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.decorate(user)
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", username)
	}
	s.decorate(user)
	return user, nil
}

// Rename changes the caller's username, rejecting names already taken
// by someone else.
func (s *UserService) Rename(ctx context.Context, userID, username string) (*models.User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Username != username {
		taken, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if taken != nil {
			return nil, models.NewConflictError("username already taken")
		}
		user.Username = username
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	s.decorate(user)
	return user, nil
}

// SetBioAudio replaces the caller's spoken bio. The previous recording
// is removed from the blob store once the new reference is saved.
func (s *UserService) SetBioAudio(ctx context.Context, userID string, audio io.Reader) (*models.User, error) {
	return s.setRecording(ctx, userID, blob.KindBio, audio)
}

// SetMusicAudio replaces the caller's profile music.
func (s *UserService) SetMusicAudio(ctx context.Context, userID string, audio io.Reader) (*models.User, error) {
	return s.setRecording(ctx, userID, blob.KindMusic, audio)
}

// ClearMusicAudio removes the caller's profile music, if any.
func (s *UserService) ClearMusicAudio(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	old := user.MusicRef
	user.MusicRef = ""
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.deleteBlob(ctx, old)

	s.decorate(user)
	return user, nil
}

func (s *UserService) setRecording(ctx context.Context, userID string, kind blob.Kind, audio io.Reader) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ref, err := s.blobs.Save(kind, audio)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var old string
	switch kind {
	case blob.KindBio:
		old = user.BioRef
		user.BioRef = ref
	case blob.KindMusic:
		old = user.MusicRef
		user.MusicRef = ref
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.deleteBlob(ctx, ref)
		return nil, models.NewInternalError(err)
	}
	s.deleteBlob(ctx, old)

	s.decorate(user)
	return user, nil
}

// deleteBlob removes a recording best-effort. Orphaned files are
// preferable to failing the request that already committed.
func (s *UserService) deleteBlob(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.blobs.Delete(ref); err != nil {
		slog.WarnContext(ctx, "failed to delete audio blob", "ref", ref, "err", err)
	}
}

func (s *UserService) decorate(user *models.User) {
	if user == nil {
		return
	}
	user.BioURL = s.blobs.URL(user.BioRef)
	user.MusicURL = s.blobs.URL(user.MusicRef)
}
