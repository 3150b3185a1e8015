package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"entitlement-controlplane/pkg/config"
	"entitlement-controlplane/pkg/featureflags"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

var Module = fx.Module("release", fx.Provide(NewProvider))

// FlagCurrentRelease is the Flagsmith environment flag holding the release
// currently rolled out to platforms.
const FlagCurrentRelease = "current_release"

type Provider interface {
	CurrentRelease(ctx context.Context) (string, error)
}

type provider struct {
	flags    featureflags.FeatureFlag
	fallback string
}

type Params struct {
	fx.In
	Config *config.Config
	Flags  featureflags.FeatureFlag `optional:"true"`
}

func NewProvider(p Params) Provider {
	return &provider{
		flags:    p.Flags,
		fallback: p.Config.AppVersion,
	}
}

// CurrentRelease prefers the Flagsmith value and falls back to the build
// version when flags are disabled or the flag is unset.
func (p *provider) CurrentRelease(ctx context.Context) (string, error) {
	if p.flags != nil {
		v, ok, err := p.flags.Value(ctx, FlagCurrentRelease)
		switch {
		case errors.Is(err, featureflags.ErrDisabled):
		case err != nil:
			zap.L().Warn("failed to read current release flag, using build version", zap.Error(err))
		case ok:
			if s, isString := v.(string); isString && s != "" {
				return Canonical(s)
			}
		}
	}

	if p.fallback == "" {
		return "", errors.New("current release unknown")
	}
	return Canonical(p.fallback)
}

// Canonical normalizes "1.2.3" and "v1.2.3" to the semver form "v1.2.3".
func Canonical(v string) (string, error) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid release version %q", v)
	}
	return semver.Canonical(v), nil
}

// Supports reports whether release falls inside [minimum, maximum]. Empty
// bounds are open.
func Supports(release, minimum, maximum string) bool {
	if minimum != "" {
		if m, err := Canonical(minimum); err == nil && semver.Compare(release, m) < 0 {
			return false
		}
	}
	if maximum != "" {
		if m, err := Canonical(maximum); err == nil && semver.Compare(release, m) > 0 {
			return false
		}
	}
	return true
}
