// Package versioning implements optimistic concurrency for mutable
// aggregates. Every aggregate embeds Versioned and is only ever updated
// through Apply, which compares the caller's expected version against the
// stored one and increments by exactly one on acceptance.
package versioning

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ErrVersionConflict signals a stale expected version. The caller should
// re-read the aggregate and retry; the store is left unchanged.
var ErrVersionConflict = errors.New("version_conflict")

// Versioned is embedded by every mutable aggregate.
type Versioned struct {
	Version int64 `gorm:"not null;default:0" json:"version"`
}

func (v *Versioned) AggregateVersion() int64 {
	return v.Version
}

func (v *Versioned) setAggregateVersion(n int64) {
	v.Version = n
}

// Aggregate is the contract an entity must satisfy to go through Apply.
type Aggregate interface {
	AggregateID() snowflake.ID
	AggregateVersion() int64
	setAggregateVersion(int64)
}

// Apply mutates agg and persists it inside the caller's scope. The in-memory
// version check catches the obvious stale read; the conditional UPDATE on
// (id, version) catches the race where a concurrent writer committed between
// our read and our write. RowsAffected == 0 means we lost that race.
func Apply(ctx context.Context, tx *gorm.DB, agg Aggregate, expectedVersion int64, mutate func() error) error {
	if agg.AggregateVersion() != expectedVersion {
		return ErrVersionConflict
	}

	if mutate != nil {
		if err := mutate(); err != nil {
			return err
		}
	}

	agg.setAggregateVersion(expectedVersion + 1)

	res := tx.WithContext(ctx).
		Model(agg).
		Where("id = ? AND version = ?", agg.AggregateID(), expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(agg)
	if res.Error != nil {
		agg.setAggregateVersion(expectedVersion)
		return res.Error
	}
	if res.RowsAffected == 0 {
		agg.setAggregateVersion(expectedVersion)
		return ErrVersionConflict
	}
	return nil
}
