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

type CommentService struct {
	db             *gorm.DB
	commentRepo    repository.CommentRepository
	postRepo       repository.PostRepository
	engagementRepo repository.EngagementRepository
	blobs          blob.Store

	// postLocks serializes comment creation against the cascade
	// deletion of the same post.
	postLocks    *KeyedMutex
	commentLocks *KeyedMutex
}

type ListCommentsInput struct {
	PostID            string
	CurrentUserID     string
	IncludeSuppressed bool
}

func NewCommentService(
	db *gorm.DB,
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	engagementRepo repository.EngagementRepository,
	blobs blob.Store,
	postLocks *KeyedMutex,
) *CommentService {
	return &CommentService{
		db:             db,
		commentRepo:    commentRepo,
		postRepo:       postRepo,
		engagementRepo: engagementRepo,
		blobs:          blobs,
		postLocks:      postLocks,
		commentLocks:   NewKeyedMutex(),
	}
}

// CreateComment attaches an audio reply to a post. The post's existence
// is re-checked inside the transaction, under the same lock the
// moderation cascade takes, so a comment can never land on a post that
// is concurrently being deleted.
func (s *CommentService) CreateComment(ctx context.Context, authorID, postID string, audio io.Reader) (*models.Comment, error) {
	ref, err := s.blobs.Save(blob.KindComment, audio)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	comment := &models.Comment{
		ID:       uuid.New().String(),
		PostID:   postID,
		AuthorID: authorID,
		AudioRef: ref,
	}

	unlock := s.postLocks.Lock(postID)
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postRepo := s.postRepo.WithTx(tx)
		if _, err := postRepo.GetByID(ctx, postID); err != nil {
			return err
		}
		if err := s.commentRepo.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		return postRepo.IncrementCommentsCount(ctx, postID)
	})
	unlock()

	if txErr != nil {
		if delErr := s.blobs.Delete(ref); delErr != nil {
			observability.BlobDeleteFailures.Inc()
		}
		var appErr *models.AppError
		if errors.As(txErr, &appErr) {
			return nil, txErr
		}
		return nil, models.NewInternalError(txErr)
	}

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	s.decorate(created, nil)
	return created, nil
}

// ListComments returns a post's comments, newest first. Comments at or
// past the suppression threshold are omitted unless the caller asks for
// them, in which case they come back flagged.
func (s *CommentService) ListComments(ctx context.Context, in ListCommentsInput) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, in.PostID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ids := make([]string, len(comments))
	for i, cm := range comments {
		ids[i] = cm.ID
	}
	thumbed, err := s.engagementRepo.ActiveTargets(ctx, in.CurrentUserID, ids, models.ActionThumbsDown)
	if err != nil {
		slog.WarnContext(ctx, "failed to load thumbs-down flags", "user_id", in.CurrentUserID, "err", err)
		thumbed = nil
	}

	visible := make([]*models.Comment, 0, len(comments))
	for _, cm := range comments {
		if cm.IsSuppressed() && !in.IncludeSuppressed {
			continue
		}
		s.decorate(cm, thumbed)
		visible = append(visible, cm)
	}
	return visible, nil
}

// ToggleThumbsDown flips the caller's thumbs-down on a comment and
// returns the comment with its updated tally.
func (s *CommentService) ToggleThumbsDown(ctx context.Context, actorID, commentID string) (*models.Comment, error) {
	unlock := s.commentLocks.Lock(commentID)
	defer unlock()

	var active bool
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentRepo := s.commentRepo.WithTx(tx)
		if _, err := commentRepo.GetByID(ctx, commentID); err != nil {
			return err
		}

		var err error
		active, err = s.engagementRepo.WithTx(tx).Toggle(ctx, actorID, commentID)
		if err != nil {
			return err
		}

		delta := 1
		if !active {
			delta = -1
		}
		return commentRepo.AdjustThumbsDown(ctx, commentID, delta)
	})
	if txErr != nil {
		var appErr *models.AppError
		if errors.As(txErr, &appErr) {
			return nil, txErr
		}
		return nil, models.NewInternalError(txErr)
	}

	state := "retracted"
	if active {
		state = "cast"
	}
	observability.ThumbsDownToggles.WithLabelValues(state).Inc()

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	s.decorate(comment, map[string]bool{commentID: active})
	return comment, nil
}

func (s *CommentService) decorate(cm *models.Comment, thumbed map[string]bool) {
	cm.AudioURL = s.blobs.URL(cm.AudioRef)
	cm.Author.BioURL = s.blobs.URL(cm.Author.BioRef)
	cm.Author.MusicURL = s.blobs.URL(cm.Author.MusicRef)
	cm.Suppressed = cm.IsSuppressed()
	cm.UserThumbedDown = thumbed[cm.ID]
}
