// Package licensetest provides license.Authority implementations for tests.
package licensetest

import (
	"context"
	"time"

	"entitlement-controlplane/services/license"
)

// FixedAuthority answers every lookup with an always-valid enterprise key
// and accepts every trial and activation.
type FixedAuthority struct{}

var _ license.Authority = FixedAuthority{}

func (FixedAuthority) RequestTrial(context.Context, license.TrialRequest) error {
	return nil
}

func (FixedAuthority) MarkAsActivated(context.Context, string, string) error {
	return nil
}

func (FixedAuthority) GetKey(_ context.Context, key string) (*license.LicenseKey, error) {
	if key == "" {
		return nil, nil
	}
	return ValidKey(key), nil
}

// ValidKey builds an enterprise key with every feature enabled that expires
// in a hundred years.
func ValidKey(key string) *license.LicenseKey {
	now := time.Now().UTC()
	expires := now.AddDate(100, 0, 0)
	on, off := true, false

	return &license.LicenseKey{
		ID:          "enterprise-license",
		Key:         key,
		ActivatedAt: &now,
		ExpiresAt:   &expires,
		CreatedAt:   &now,
		UpdatedAt:   &now,
		Email:       "enterprise@local.dev",
		FeatureOverrides: license.FeatureOverrides{
			SSOEnabled:               &on,
			AuditLogEnabled:          &on,
			EnvironmentsEnabled:      &on,
			CustomDomainsEnabled:     &on,
			CustomRolesEnabled:       &on,
			ProjectRolesEnabled:      &on,
			APIKeysEnabled:           &on,
			GlobalConnectionsEnabled: &on,
			ManagePiecesEnabled:      &on,
			ManageProjectsEnabled:    &on,
			ManageTemplatesEnabled:   &on,
			CustomAppearanceEnabled:  &on,
			AnalyticsEnabled:         &on,
			AlertsEnabled:            &on,
			FlowIssuesEnabled:        &on,
			EmbeddingEnabled:         &on,
			ShowPoweredBy:            &off,
		},
	}
}
