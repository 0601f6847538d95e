package versioning

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Name string       `gorm:"type:text"`
	Versioned
}

func (widget) TableName() string { return "widgets" }

func (w *widget) AggregateID() snowflake.ID { return w.ID }

func setupDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, node
}

func TestApplyIncrementsVersionByOne(t *testing.T) {
	db, node := setupDB(t)

	w := &widget{ID: node.Generate(), Name: "a"}
	require.NoError(t, db.Create(w).Error)
	require.Equal(t, int64(0), w.AggregateVersion())

	err := Apply(context.Background(), db, w, 0, func() error {
		w.Name = "b"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.AggregateVersion())

	var stored widget
	require.NoError(t, db.First(&stored, "id = ?", w.ID).Error)
	assert.Equal(t, "b", stored.Name)
	assert.Equal(t, int64(1), stored.Version)
}

func TestApplyStaleExpectedVersionLeavesRowUnchanged(t *testing.T) {
	db, node := setupDB(t)

	w := &widget{ID: node.Generate(), Name: "a"}
	require.NoError(t, db.Create(w).Error)
	require.NoError(t, Apply(context.Background(), db, w, 0, func() error {
		w.Name = "b"
		return nil
	}))

	stale := &widget{ID: w.ID, Name: "b"}
	err := Apply(context.Background(), db, stale, 0, func() error {
		stale.Name = "c"
		return nil
	})
	require.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(0), stale.AggregateVersion())

	var stored widget
	require.NoError(t, db.First(&stored, "id = ?", w.ID).Error)
	assert.Equal(t, "b", stored.Name)
	assert.Equal(t, int64(1), stored.Version)
}

func TestApplyLostRaceDetectedByConditionalUpdate(t *testing.T) {
	db, node := setupDB(t)

	w := &widget{ID: node.Generate(), Name: "a"}
	require.NoError(t, db.Create(w).Error)

	// A concurrent writer commits between our read and our write.
	require.NoError(t, db.Model(&widget{}).
		Where("id = ?", w.ID).
		Updates(map[string]any{"name": "other", "version": 1}).Error)

	err := Apply(context.Background(), db, w, 0, func() error {
		w.Name = "mine"
		return nil
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	var stored widget
	require.NoError(t, db.First(&stored, "id = ?", w.ID).Error)
	assert.Equal(t, "other", stored.Name)
	assert.Equal(t, int64(1), stored.Version)
}

func TestApplyMutateErrorShortCircuits(t *testing.T) {
	db, node := setupDB(t)

	w := &widget{ID: node.Generate(), Name: "a"}
	require.NoError(t, db.Create(w).Error)

	boom := assert.AnError
	err := Apply(context.Background(), db, w, 0, func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), w.AggregateVersion())
}
