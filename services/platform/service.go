package platform

import (
	"context"
	"fmt"
	"time"

	"entitlement-controlplane/pkg/db/option"
	"entitlement-controlplane/pkg/db/pagination"
	"entitlement-controlplane/pkg/errutil"
	"entitlement-controlplane/pkg/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Store struct {
	repo     repository.Repository[Platform]
	pageSize int
}

type StoreParams struct {
	fx.In
	DB *gorm.DB
}

func NewStore(p StoreParams) *Store {
	return &Store{
		repo:     repository.ProvideStore[Platform](p.DB),
		pageSize: pagination.MaxLimit,
	}
}

// ListAll walks every platform page by page.
func (s *Store) ListAll(ctx context.Context) ([]*Platform, error) {
	var (
		out    []*Platform
		cursor string
	)

	for {
		page, err := s.repo.Find(ctx, &Platform{}, option.ApplyPagination(pagination.Pagination{
			Cursor: cursor,
			Limit:  s.pageSize,
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to list platforms: %w", err)
		}

		page, info, err := pagination.BuildCursorPageInfo(page, s.pageSize, func(p *Platform) pagination.Cursor {
			return pagination.Cursor{ID: p.ID}
		})
		if err != nil {
			return nil, err
		}

		out = append(out, page...)
		if !info.HasMore {
			return out, nil
		}
		cursor = info.NextCursor
	}
}

func (s *Store) Get(ctx context.Context, id string) (*Platform, error) {
	p, err := s.repo.FindOne(ctx, &Platform{ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to get platform %s: %w", id, err)
	}
	if p == nil {
		return nil, errutil.NotFound("platform not found", nil, errutil.WithParam("platformId", id))
	}
	return p, nil
}

// UpdateFeatures replaces all feature flags of the platform in one statement.
func (s *Store) UpdateFeatures(ctx context.Context, id string, features Features) error {
	cols := features.Columns()
	cols["updated_at"] = time.Now()
	if err := s.repo.Update(ctx, id, cols); err != nil {
		return fmt.Errorf("failed to update features of platform %s: %w", id, err)
	}
	return nil
}

func (s *Store) UpdateLicenseKey(ctx context.Context, id string, key *string) error {
	if err := s.repo.Update(ctx, id, map[string]any{
		"license_key": key,
		"updated_at":  time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to update license key of platform %s: %w", id, err)
	}
	return nil
}
