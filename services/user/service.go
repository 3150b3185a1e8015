package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entitlement-controlplane/pkg/db/option"
	"entitlement-controlplane/pkg/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Store struct {
	db   *gorm.DB
	repo repository.Repository[User]
}

type StoreParams struct {
	fx.In
	DB *gorm.DB
}

func NewStore(p StoreParams) *Store {
	return &Store{
		db:   p.DB,
		repo: repository.ProvideStore[User](p.DB),
	}
}

func (s *Store) ListByPlatform(ctx context.Context, platformID string) ([]*User, error) {
	if platformID == "" {
		return nil, errors.New("platform id is required")
	}

	users, err := s.repo.Find(ctx, &User{PlatformID: platformID}, option.WithSortBy(option.QuerySortBy{
		Field:     "created_at",
		Direction: option.ASC,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users of platform %s: %w", platformID, err)
	}
	return users, nil
}

// Update sets status and role of a user scoped to its platform. Updating a
// user to the values it already holds is a no-op.
func (s *Store) Update(ctx context.Context, p UpdateParams) error {
	res := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ? AND platform_id = ?", p.ID, p.PlatformID).
		Updates(map[string]any{
			"status":        p.Status,
			"platform_role": p.PlatformRole,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", p.ID, res.Error)
	}
	return nil
}
