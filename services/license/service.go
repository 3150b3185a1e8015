package license

import (
	"context"
	"fmt"
	"time"

	"entitlement-controlplane/pkg/config"
	"entitlement-controlplane/pkg/errutil"
	"entitlement-controlplane/pkg/release"
	"entitlement-controlplane/pkg/repository"
	"entitlement-controlplane/services/piece"
	"entitlement-controlplane/services/platform"
	"entitlement-controlplane/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PlatformStore interface {
	ListAll(ctx context.Context) ([]*platform.Platform, error)
	Get(ctx context.Context, id string) (*platform.Platform, error)
	UpdateFeatures(ctx context.Context, id string, features platform.Features) error
	UpdateLicenseKey(ctx context.Context, id string, key *string) error
}

type UserStore interface {
	ListByPlatform(ctx context.Context, platformID string) ([]*user.User, error)
	Update(ctx context.Context, p user.UpdateParams) error
}

type PieceStore interface {
	List(ctx context.Context, p piece.ListParams) ([]*piece.Piece, error)
	Delete(ctx context.Context, id, projectID string) error
}

type Service struct {
	authority Authority
	platforms PlatformStore
	users     UserStore
	pieces    PieceStore
	releases  release.Provider
	sagas     repository.Repository[DowngradeSaga]
	node      *snowflake.Node

	edition  string
	baseline platform.Features
	now      func() time.Time
}

type ServiceParams struct {
	fx.In

	DB        *gorm.DB
	Config    *config.Config
	Node      *snowflake.Node
	Authority Authority
	Platforms PlatformStore
	Users     UserStore
	Pieces    PieceStore
	Releases  release.Provider
}

func NewService(p ServiceParams) *Service {
	edition := p.Config.License.Edition
	if edition == "" {
		edition = EditionEnterprise
	}

	return &Service{
		authority: p.Authority,
		platforms: p.Platforms,
		users:     p.Users,
		pieces:    p.Pieces,
		releases:  p.Releases,
		sagas:     repository.ProvideStore[DowngradeSaga](p.DB),
		node:      p.Node,
		edition:   edition,
		baseline:  Baseline(edition),
		now:       time.Now,
	}
}

func (s *Service) RequestTrial(ctx context.Context, req TrialRequest) error {
	return s.authority.RequestTrial(ctx, req)
}

func (s *Service) MarkAsActivated(ctx context.Context, key, platformID string) error {
	return s.authority.MarkAsActivated(ctx, key, platformID)
}

func (s *Service) GetKey(ctx context.Context, key string) (*LicenseKey, error) {
	return s.authority.GetKey(ctx, key)
}

// VerifyKeyOrReturnNull resolves the key currently entitling the platform.
// nil means the platform is on the free tier. Authority failures are
// returned as errors, never as nil.
func (s *Service) VerifyKeyOrReturnNull(ctx context.Context, platformID, licenseKey string) (*LicenseKey, error) {
	if licenseKey == "" {
		return nil, nil
	}

	key, err := s.authority.GetKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}

	zapLog := zap.L().With(zap.String("platform_id", platformID), zap.String("license_id", key.ID))

	if err := key.Validate(); err != nil {
		zapLog.Warn("license key rejected", zap.Error(err))
		return nil, nil
	}
	if key.Expired(s.now()) {
		zapLog.Info("license key expired", zap.Timep("expires_at", key.ExpiresAt))
		return nil, nil
	}

	return key, nil
}

// ApplyLimits projects key onto the platform's feature flags. The whole set
// is written, so applying the same key twice leaves the same state.
func (s *Service) ApplyLimits(ctx context.Context, platformID string, key *LicenseKey) error {
	features := s.baseline
	if key != nil {
		features = Overlay(features, key.FeatureOverrides)
	}

	if err := s.platforms.UpdateFeatures(ctx, platformID, features); err != nil {
		return err
	}

	if _, err := s.sagas.Delete(ctx, &DowngradeSaga{PlatformID: platformID}); err != nil {
		return fmt.Errorf("failed to clear downgrade of platform %s: %w", platformID, err)
	}
	return nil
}

// Activate binds key to the platform and projects its features.
func (s *Service) Activate(ctx context.Context, platformID, licenseKey string) (*LicenseKey, error) {
	key, err := s.VerifyKeyOrReturnNull(ctx, platformID, licenseKey)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, errutil.NotFound("license key is not valid", nil,
			errutil.WithReason(ReasonInvalidLicenseKey),
			errutil.WithParam("key", licenseKey),
		)
	}

	if err := s.platforms.UpdateLicenseKey(ctx, platformID, &licenseKey); err != nil {
		return nil, err
	}
	if err := s.ApplyLimits(ctx, platformID, key); err != nil {
		return nil, err
	}
	if err := s.authority.MarkAsActivated(ctx, licenseKey, platformID); err != nil {
		return nil, err
	}

	zap.L().Info("license key activated", zap.String("platform_id", platformID), zap.String("license_id", key.ID))
	return key, nil
}
