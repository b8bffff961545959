package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"voicenet/internal/blob"
	"voicenet/internal/models"
	"voicenet/internal/observability"
	"voicenet/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Removal needs both an absolute quorum of delete votes and a vote
// ratio that outweighs the post's reach. An unheard post can never be
// voted off.
const (
	deleteVoteQuorum = 5
	deleteVoteRatio  = 0.3
)

type ModerationService struct {
	db             *gorm.DB
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	engagementRepo repository.EngagementRepository
	reportRepo     repository.ReportRepository
	blobs          blob.Store

	// postLocks is shared with CommentService so a cascade and a new
	// comment on the same post cannot interleave.
	postLocks *KeyedMutex
}

// DeleteVoteResult reports the outcome of a delete vote. Post is nil
// when the vote tipped the post over the removal threshold.
type DeleteVoteResult struct {
	Post    *models.Post
	Deleted bool
}

func NewModerationService(
	db *gorm.DB,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	engagementRepo repository.EngagementRepository,
	reportRepo repository.ReportRepository,
	blobs blob.Store,
	postLocks *KeyedMutex,
) *ModerationService {
	return &ModerationService{
		db:             db,
		postRepo:       postRepo,
		commentRepo:    commentRepo,
		engagementRepo: engagementRepo,
		reportRepo:     reportRepo,
		blobs:          blobs,
		postLocks:      postLocks,
	}
}

// CastDeleteVote records actorID's vote to remove postID. The first
// vote per actor counts; repeats are silent no-ops. When the updated
// tally crosses the removal threshold the post and all its comments are
// deleted in the same transaction, and their audio blobs are cleaned up
// afterwards.
func (s *ModerationService) CastDeleteVote(ctx context.Context, actorID, postID string) (*DeleteVoteResult, error) {
	unlock := s.postLocks.Lock(postID)
	defer unlock()

	var (
		deleted  bool
		post     *models.Post
		orphaned []string
	)
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postRepo := s.postRepo.WithTx(tx)

		var err error
		post, err = postRepo.GetByID(ctx, postID)
		if err != nil {
			return err
		}

		recorded, err := s.engagementRepo.WithTx(tx).RecordOnce(ctx, actorID, postID, models.ActionDeleteVote)
		if err != nil {
			return err
		}
		if !recorded {
			return nil
		}

		if err := postRepo.IncrementDeleteVotes(ctx, postID); err != nil {
			return err
		}
		post, err = postRepo.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		observability.DeleteVotesRecorded.Inc()

		if !removalDue(post) {
			return nil
		}

		commentRepo := s.commentRepo.WithTx(tx)
		comments, err := commentRepo.ListByPost(ctx, postID)
		if err != nil {
			return err
		}
		orphaned = append(orphaned, post.AudioRef)
		for _, cm := range comments {
			orphaned = append(orphaned, cm.AudioRef)
		}

		if err := commentRepo.DeleteByPost(ctx, postID); err != nil {
			return err
		}
		if err := postRepo.Delete(ctx, postID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if txErr != nil {
		var appErr *models.AppError
		if errors.As(txErr, &appErr) {
			return nil, txErr
		}
		return nil, models.NewInternalError(txErr)
	}

	if deleted {
		observability.CascadeDeletions.Inc()
		s.cleanupBlobs(ctx, orphaned)
		return &DeleteVoteResult{Deleted: true}, nil
	}

	s.decorate(ctx, post, actorID)
	return &DeleteVoteResult{Post: post}, nil
}

// decorate fills the presentation fields on a surviving post from the
// voter's perspective. Reaching here means the actor's vote record
// exists, so the vote flag needs no lookup.
func (s *ModerationService) decorate(ctx context.Context, post *models.Post, actorID string) {
	s.resolveURLs(post)
	post.UserVotedDelete = true

	listened, err := s.engagementRepo.Has(ctx, actorID, post.ID, models.ActionListen)
	if err != nil {
		slog.WarnContext(ctx, "failed to load listen flag", "user_id", actorID, "post_id", post.ID, "err", err)
		return
	}
	post.UserListened = listened
}

// ReportPost files an abuse report against a post. Reports are kept for
// operators; they do not feed the vote tally.
func (s *ModerationService) ReportPost(ctx context.Context, reporterID, postID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.NewValidationError("reason is required")
	}
	if len(reason) > 500 {
		return models.NewValidationError("reason too long (max 500 characters)")
	}

	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return err
	}

	report := &models.Report{
		ID:         uuid.New().String(),
		PostID:     postID,
		ReporterID: reporterID,
		Reason:     reason,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return models.NewInternalError(err)
	}
	observability.ReportsFiled.Inc()
	return nil
}

// removalDue applies the community removal threshold to a post's
// current counters.
func removalDue(post *models.Post) bool {
	if post.DeleteVotes < deleteVoteQuorum || post.Listens == 0 {
		return false
	}
	return float64(post.DeleteVotes)/float64(post.Listens) > deleteVoteRatio
}

// cleanupBlobs removes orphaned recordings after the transaction has
// committed. Failures are counted and logged; the rows are already gone
// and a leftover file must not fail the request.
func (s *ModerationService) cleanupBlobs(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.blobs.Delete(ref); err != nil {
			observability.BlobDeleteFailures.Inc()
			slog.WarnContext(ctx, "failed to delete audio blob", "ref", ref, "err", err)
		}
	}
}

func (s *ModerationService) resolveURLs(post *models.Post) {
	if post == nil {
		return
	}
	post.AudioURL = s.blobs.URL(post.AudioRef)
	post.Author.BioURL = s.blobs.URL(post.Author.BioRef)
	post.Author.MusicURL = s.blobs.URL(post.Author.MusicRef)
}
