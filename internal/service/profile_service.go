package service

import (
	"context"

	"voicenet/internal/blob"
	"voicenet/internal/models"
	"voicenet/internal/repository"

	"gorm.io/gorm"
)

// ProfileService assembles a user's public profile. Stats are
// recomputed from the live rows on every call; deleted posts therefore
// drop out of the totals immediately.
type ProfileService struct {
	db             *gorm.DB
	userRepo       repository.UserRepository
	engagementRepo repository.EngagementRepository
	blobs          blob.Store
}

type ProfileStats struct {
	PostCount    int64 `json:"post_count"`
	TotalListens int64 `json:"total_listens"`
	// TotalComments and TotalThumbsDown cover the comments the user
	// authored anywhere, not comments received on their own posts.
	TotalComments   int64 `json:"total_comments"`
	TotalThumbsDown int64 `json:"total_thumbs_down"`
	// Listeners counts distinct users who have listened to any of the
	// user's live posts, not listen events.
	Listeners int64 `json:"listeners"`
}

type Profile struct {
	User  *models.User `json:"user"`
	Stats ProfileStats `json:"stats"`
}

func NewProfileService(db *gorm.DB, userRepo repository.UserRepository, engagementRepo repository.EngagementRepository, blobs blob.Store) *ProfileService {
	return &ProfileService{db: db, userRepo: userRepo, engagementRepo: engagementRepo, blobs: blobs}
}

func (s *ProfileService) GetProfile(ctx context.Context, username string) (*Profile, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", username)
	}

	stats, err := s.aggregate(ctx, user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user.BioURL = s.blobs.URL(user.BioRef)
	user.MusicURL = s.blobs.URL(user.MusicRef)
	return &Profile{User: user, Stats: *stats}, nil
}

func (s *ProfileService) aggregate(ctx context.Context, userID string) (*ProfileStats, error) {
	var stats ProfileStats

	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("author_id = ?", userID).
		Select("COUNT(*) AS post_count, COALESCE(SUM(listens), 0) AS total_listens").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	// Comments the user left on other posts, and the thumbs-down those
	// comments collected.
	err = s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("author_id = ?", userID).
		Select("COUNT(*) AS total_comments, COALESCE(SUM(thumbs_down), 0) AS total_thumbs_down").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	var postIDs []string
	err = s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("author_id = ?", userID).
		Pluck("id", &postIDs).Error
	if err != nil {
		return nil, err
	}

	stats.Listeners, err = s.engagementRepo.CountDistinctActors(ctx, postIDs, models.ActionListen)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
