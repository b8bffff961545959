package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"voicenet/internal/blob"
	"voicenet/internal/models"
	"voicenet/internal/observability"
	"voicenet/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostService struct {
	db             *gorm.DB
	postRepo       repository.PostRepository
	engagementRepo repository.EngagementRepository
	blobs          blob.Store
	postLocks      *KeyedMutex
}

type ListPostsInput struct {
	Limit         int
	Offset        int
	CurrentUserID string
}

func NewPostService(
	db *gorm.DB,
	postRepo repository.PostRepository,
	engagementRepo repository.EngagementRepository,
	blobs blob.Store,
	postLocks *KeyedMutex,
) *PostService {
	return &PostService{
		db:             db,
		postRepo:       postRepo,
		engagementRepo: engagementRepo,
		blobs:          blobs,
		postLocks:      postLocks,
	}
}

// CreatePost stores the audio payload and publishes a post referencing
// it. The blob is removed again if the row cannot be written.
func (s *PostService) CreatePost(ctx context.Context, authorID string, audio io.Reader) (*models.Post, error) {
	ref, err := s.blobs.Save(blob.KindPost, audio)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	post := &models.Post{
		ID:       uuid.New().String(),
		AuthorID: authorID,
		AudioRef: ref,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		if delErr := s.blobs.Delete(ref); delErr != nil {
			observability.BlobDeleteFailures.Inc()
		}
		return nil, models.NewInternalError(err)
	}

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, created, authorID)
	return created, nil
}

func (s *PostService) GetPost(ctx context.Context, postID, currentUserID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, post, currentUserID)
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	limit := clampLimit(in.Limit)
	posts, err := s.postRepo.List(ctx, limit, in.Offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	s.decorateAll(ctx, posts, in.CurrentUserID)
	return posts, nil
}

func (s *PostService) ListByAuthor(ctx context.Context, authorID, currentUserID string, limit, offset int) ([]*models.Post, error) {
	posts, err := s.postRepo.ListByAuthor(ctx, authorID, clampLimit(limit), offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	s.decorateAll(ctx, posts, currentUserID)
	return posts, nil
}

// Listen records that actorID played postID. The first listen per
// actor-post pair bumps the counter; replays are silently absorbed.
func (s *PostService) Listen(ctx context.Context, actorID, postID string) (*models.Post, error) {
	unlock := s.postLocks.Lock(postID)
	defer unlock()

	var recorded bool
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postRepo := s.postRepo.WithTx(tx)
		if _, err := postRepo.GetByID(ctx, postID); err != nil {
			return err
		}
		var err error
		recorded, err = s.engagementRepo.WithTx(tx).RecordOnce(ctx, actorID, postID, models.ActionListen)
		if err != nil {
			return err
		}
		if recorded {
			return postRepo.IncrementListens(ctx, postID)
		}
		return nil
	})
	if txErr != nil {
		var appErr *models.AppError
		if errors.As(txErr, &appErr) {
			return nil, txErr
		}
		return nil, models.NewInternalError(txErr)
	}
	if recorded {
		observability.ListensRecorded.Inc()
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, post, actorID)
	return post, nil
}

func (s *PostService) decorateAll(ctx context.Context, posts []*models.Post, currentUserID string) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	listened, err := s.engagementRepo.ActiveTargets(ctx, currentUserID, ids, models.ActionListen)
	if err != nil {
		slog.WarnContext(ctx, "failed to load listen flags", "user_id", currentUserID, "err", err)
		listened = nil
	}
	voted, err := s.engagementRepo.ActiveTargets(ctx, currentUserID, ids, models.ActionDeleteVote)
	if err != nil {
		slog.WarnContext(ctx, "failed to load delete-vote flags", "user_id", currentUserID, "err", err)
		voted = nil
	}

	for _, p := range posts {
		s.resolveURLs(p)
		p.UserListened = listened[p.ID]
		p.UserVotedDelete = voted[p.ID]
	}
}

func (s *PostService) decorate(ctx context.Context, post *models.Post, currentUserID string) {
	s.decorateAll(ctx, []*models.Post{post}, currentUserID)
}

func (s *PostService) resolveURLs(post *models.Post) {
	post.AudioURL = s.blobs.URL(post.AudioRef)
	post.Author.BioURL = s.blobs.URL(post.Author.BioRef)
	post.Author.MusicURL = s.blobs.URL(post.Author.MusicRef)
}

func clampLimit(limit int) int {
	const defaultLimit = 25
	const maxLimit = 100
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
