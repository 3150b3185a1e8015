package license

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"entitlement-controlplane/services/piece"
	"entitlement-controlplane/services/user"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// fanOutLimit bounds the concurrent user updates and piece deletions of a
// single downgrade.
const fanOutLimit = 16

// DowngradeToFreePlan revokes every feature of the platform, deactivates its
// non-admin users and deletes its private pieces. Progress is persisted per
// step; calling it again after a failure resumes at the failed steps.
// Nothing is rolled back.
func (s *Service) DowngradeToFreePlan(ctx context.Context, platformID string) error {
	saga, err := s.loadSaga(ctx, platformID)
	if err != nil {
		return err
	}
	saga.Attempts++

	zapLog := zap.L().With(
		zap.String("platform_id", platformID),
		zap.Int64("saga_id", saga.ID),
		zap.Int("attempt", saga.Attempts),
	)

	failures := map[SagaStep]string{}

	if !saga.FeaturesRevoked {
		if err := s.platforms.UpdateFeatures(ctx, platformID, TurnedOffFeatures()); err != nil {
			failures[StepRevokeFeatures] = err.Error()
			zapLog.Error("failed to revoke features", zap.Error(err))
			return multierr.Append(err, s.saveSaga(ctx, saga, failures, err))
		}
		saga.FeaturesRevoked = true
	}

	var (
		g                   errgroup.Group
		usersErr, piecesErr error
	)
	if !saga.UsersDeactivated {
		g.Go(func() error {
			usersErr = s.deactivateUsersOtherThanAdmin(ctx, platformID)
			return nil
		})
	}
	if !saga.PiecesDeleted {
		g.Go(func() error {
			piecesErr = s.deletePrivatePieces(ctx, platformID)
			return nil
		})
	}
	_ = g.Wait()

	if usersErr == nil {
		saga.UsersDeactivated = true
	} else {
		failures[StepDeactivateUsers] = usersErr.Error()
	}
	if piecesErr == nil {
		saga.PiecesDeleted = true
	} else {
		failures[StepDeletePieces] = piecesErr.Error()
	}

	stepsErr := multierr.Combine(usersErr, piecesErr)
	if stepsErr != nil {
		zapLog.Error("downgrade incomplete", zap.Error(stepsErr))
	} else {
		zapLog.Info("platform downgraded to free plan")
	}

	return multierr.Append(stepsErr, s.saveSaga(ctx, saga, failures, stepsErr))
}

// loadSaga returns the in-flight saga of the platform. A completed saga is
// restarted so every downgrade call re-applies all steps.
func (s *Service) loadSaga(ctx context.Context, platformID string) (*DowngradeSaga, error) {
	saga, err := s.sagas.FindOne(ctx, &DowngradeSaga{PlatformID: platformID})
	if err != nil {
		return nil, fmt.Errorf("failed to load downgrade of platform %s: %w", platformID, err)
	}

	now := s.now()
	if saga == nil {
		return &DowngradeSaga{
			PlatformID: platformID,
			ID:         s.node.Generate().Int64(),
			StartedAt:  now,
		}, nil
	}

	if saga.Completed() {
		saga.ID = s.node.Generate().Int64()
		saga.FeaturesRevoked = false
		saga.UsersDeactivated = false
		saga.PiecesDeleted = false
		saga.Attempts = 0
		saga.StartedAt = now
		saga.CompletedAt = nil
	}
	return saga, nil
}

func (s *Service) saveSaga(ctx context.Context, saga *DowngradeSaga, failures map[SagaStep]string, cause error) error {
	now := s.now()
	saga.UpdatedAt = now
	saga.LastError = ""
	if cause != nil {
		saga.LastError = cause.Error()
	}
	if saga.Completed() {
		saga.CompletedAt = &now
	}

	raw, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("failed to encode downgrade failures: %w", err)
	}
	saga.Failures = datatypes.JSON(raw)

	if err := s.sagas.BatchUpdate(ctx, []*DowngradeSaga{saga}); err != nil {
		return fmt.Errorf("failed to save downgrade of platform %s: %w", saga.PlatformID, err)
	}
	return nil
}

func (s *Service) deactivateUsersOtherThanAdmin(ctx context.Context, platformID string) error {
	users, err := s.users.ListByPlatform(ctx, platformID)
	if err != nil {
		return err
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(fanOutLimit)

	for _, u := range users {
		if u.PlatformRole == user.RoleAdmin || u.Status == user.StatusInactive {
			continue
		}
		g.Go(func() error {
			err := s.users.Update(ctx, user.UpdateParams{
				ID:           u.ID,
				PlatformID:   platformID,
				Status:       user.StatusInactive,
				PlatformRole: u.PlatformRole,
			})
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

// deletePrivatePieces removes the archive pieces owned by the platform.
// Shared pieces are listed with them and left alone. The listing always uses
// the enterprise edition, the only one that returns platform-owned pieces.
func (s *Service) deletePrivatePieces(ctx context.Context, platformID string) error {
	rel, err := s.releases.CurrentRelease(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve current release: %w", err)
	}

	pieces, err := s.pieces.List(ctx, piece.ListParams{
		Edition:       piece.EditionEnterprise,
		IncludeHidden: true,
		Release:       rel,
		PlatformID:    platformID,
	})
	if err != nil {
		return err
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(fanOutLimit)

	for _, p := range pieces {
		if p.PackageType != piece.PackageTypeArchive || p.ID == "" || !p.OwnedBy(platformID) {
			continue
		}
		g.Go(func() error {
			if err := s.pieces.Delete(ctx, p.ID, p.ProjectID); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errs
}
