package repository

import (
	"context"

	"voicenet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementRepository is the once-per-actor engagement ledger. A row's
// existence is the state; the composite primary key makes duplicate
// records impossible at the schema level.
type EngagementRepository interface {
	// WithTx returns a repository bound to the given transaction handle.
	WithTx(tx *gorm.DB) EngagementRepository
	// RecordOnce atomically inserts the (actor, target, kind) record if
	// absent. It reports whether the record was newly recorded; a
	// duplicate is a no-op, not an error.
	RecordOnce(ctx context.Context, actorID, targetID string, kind models.ActionKind) (bool, error)
	// Toggle inserts the thumbs-down record if absent or removes it if
	// present, and reports whether it is now active. Thumbs-down is the
	// only action kind permitting retraction.
	Toggle(ctx context.Context, actorID, targetID string) (bool, error)
	// Has reports whether the (actor, target, kind) record exists.
	Has(ctx context.Context, actorID, targetID string, kind models.ActionKind) (bool, error)
	// ActiveTargets filters targetIDs down to those the actor holds a
	// record of the given kind against.
	ActiveTargets(ctx context.Context, actorID string, targetIDs []string, kind models.ActionKind) (map[string]bool, error)
	// CountDistinctActors counts the distinct actors holding a record of
	// the given kind against any of targetIDs.
	CountDistinctActors(ctx context.Context, targetIDs []string, kind models.ActionKind) (int64, error)
}

type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository creates a new engagement ledger backed by db.
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) WithTx(tx *gorm.DB) EngagementRepository {
	return &engagementRepository{db: tx}
}

func (r *engagementRepository) RecordOnce(ctx context.Context, actorID, targetID string, kind models.ActionKind) (bool, error) {
	rec := models.Engagement{
		ActorID:  actorID,
		TargetID: targetID,
		Kind:     kind,
	}
	// INSERT ... ON CONFLICT DO NOTHING: atomic check-and-insert, no
	// duplicate-key error, works on both sqlite and postgres.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *engagementRepository) Toggle(ctx context.Context, actorID, targetID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actorID, targetID, models.ActionThumbsDown).
		Delete(&models.Engagement{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		// Record existed: the toggle retracted it.
		return false, nil
	}

	rec := models.Engagement{
		ActorID:  actorID,
		TargetID: targetID,
		Kind:     models.ActionThumbsDown,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *engagementRepository) Has(ctx context.Context, actorID, targetID string, kind models.ActionKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actorID, targetID, kind).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *engagementRepository) ActiveTargets(ctx context.Context, actorID string, targetIDs []string, kind models.ActionKind) (map[string]bool, error) {
	active := make(map[string]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return active, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("actor_id = ? AND kind = ? AND target_id IN ?", actorID, kind, targetIDs).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		active[id] = true
	}
	return active, nil
}

func (r *engagementRepository) CountDistinctActors(ctx context.Context, targetIDs []string, kind models.ActionKind) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("kind = ? AND target_id IN ?", kind, targetIDs).
		Distinct("actor_id").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
