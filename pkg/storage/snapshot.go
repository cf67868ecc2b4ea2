package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Snapshot stores one generation cache state: the flat per-stage track
// buffers and the segment boundary table, both JSON-encoded.
type Snapshot struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	SongID *string

	Tracks   string `gorm:"not null;default:''"`
	Segments string `gorm:"not null;default:''"`

	// Frames is the stage-0 token count covered by the boundary table.
	Frames int `gorm:"not null;default:0"`
	Seed   int64
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	var v Snapshot
	if err := s.db.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Snapshot %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetSnapshot(ctx context.Context, v *Snapshot) error {
	if err := s.db.Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set Snapshot %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	if err := s.db.Delete(&Snapshot{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete Snapshot %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListSnapshots(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Snapshot, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Snapshot{}

	q := s.db.Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list Snapshots: %w", err)
	}
	return vs, nil
}
