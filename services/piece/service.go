package piece

import (
	"context"
	"fmt"

	"entitlement-controlplane/pkg/release"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

type StoreParams struct {
	fx.In
	DB *gorm.DB
}

func NewStore(p StoreParams) *Store {
	return &Store{db: p.DB}
}

// List returns the shared pieces plus, on the enterprise edition, the pieces
// owned by the platform, restricted to those supporting p.Release.
func (s *Store) List(ctx context.Context, p ListParams) ([]*Piece, error) {
	q := s.db.WithContext(ctx).Model(&Piece{})

	if p.Edition == EditionEnterprise && p.PlatformID != "" {
		q = q.Where("platform_id IS NULL OR platform_id = ?", p.PlatformID)
	} else {
		q = q.Where("platform_id IS NULL")
	}

	if !p.IncludeHidden {
		q = q.Where("hidden = ?", false)
	}

	var pieces []*Piece
	if err := q.Order("name asc").Find(&pieces).Error; err != nil {
		return nil, fmt.Errorf("failed to list pieces: %w", err)
	}

	if p.Release == "" {
		return pieces, nil
	}

	rel, err := release.Canonical(p.Release)
	if err != nil {
		return nil, err
	}

	out := pieces[:0]
	for _, piece := range pieces {
		if release.Supports(rel, piece.MinimumSupportedRelease, piece.MaximumSupportedRelease) {
			out = append(out, piece)
		}
	}
	return out, nil
}

// Delete removes a piece owned by projectID. Deleting a piece that no longer
// exists is not an error.
func (s *Store) Delete(ctx context.Context, id, projectID string) error {
	if id == "" {
		return fmt.Errorf("piece id is required")
	}

	if err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", id, projectID).
		Delete(&Piece{}).Error; err != nil {
		return fmt.Errorf("failed to delete piece %s: %w", id, err)
	}
	return nil
}
