package featureflags

import (
	"context"
	"errors"

	"entitlement-controlplane/pkg/config"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

// ErrDisabled is returned when no Flagsmith API key is configured.
var ErrDisabled = errors.New("feature flags disabled")

type FeatureFlag interface {
	Features(ctx context.Context) ([]flagsmith.Flag, error)
	Value(ctx context.Context, name string) (any, bool, error)
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithAnalytics(),
	}
	if p.Config.Flagsmith.Addr != "" {
		opts = append(opts, flagsmith.WithBaseURL(p.Config.Flagsmith.Addr))
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) Features(ctx context.Context) ([]flagsmith.Flag, error) {
	if s.client == nil {
		return nil, ErrDisabled
	}

	flags, err := s.client.GetEnvironmentFlags()
	if err != nil {
		return nil, err
	}

	return flags.AllFlags(), nil
}

// Value returns the value of an enabled environment flag. ok is false when
// the flag is missing or disabled.
func (s *featureflag) Value(ctx context.Context, name string) (any, bool, error) {
	flags, err := s.Features(ctx)
	if err != nil {
		return nil, false, err
	}

	for _, f := range flags {
		if f.FeatureName == name && f.Enabled {
			return f.Value, true, nil
		}
	}

	return nil, false, nil
}
