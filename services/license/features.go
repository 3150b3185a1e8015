package license

import "entitlement-controlplane/services/platform"

// EnterpriseDefaults is the baseline of an enterprise deployment: every
// feature on and the "powered by" badge hidden.
func EnterpriseDefaults() platform.Features {
	return platform.Features{
		SSOEnabled:               true,
		AuditLogEnabled:          true,
		EnvironmentsEnabled:      true,
		CustomDomainsEnabled:     true,
		CustomRolesEnabled:       true,
		ProjectRolesEnabled:      true,
		APIKeysEnabled:           true,
		GlobalConnectionsEnabled: true,
		ManagePiecesEnabled:      true,
		ManageProjectsEnabled:    true,
		ManageTemplatesEnabled:   true,
		CustomAppearanceEnabled:  true,
		AnalyticsEnabled:         true,
		AlertsEnabled:            true,
		FlowIssuesEnabled:        true,
		EmbeddingEnabled:         true,
		ShowPoweredBy:            false,
	}
}

// TurnedOffFeatures is written on downgrade.
func TurnedOffFeatures() platform.Features {
	return platform.Features{}
}

// Overlay returns base with every flag set in o replaced.
func Overlay(base platform.Features, o FeatureOverrides) platform.Features {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	set(&base.SSOEnabled, o.SSOEnabled)
	set(&base.AuditLogEnabled, o.AuditLogEnabled)
	set(&base.EnvironmentsEnabled, o.EnvironmentsEnabled)
	set(&base.CustomDomainsEnabled, o.CustomDomainsEnabled)
	set(&base.CustomRolesEnabled, o.CustomRolesEnabled)
	set(&base.ProjectRolesEnabled, o.ProjectRolesEnabled)
	set(&base.APIKeysEnabled, o.APIKeysEnabled)
	set(&base.GlobalConnectionsEnabled, o.GlobalConnectionsEnabled)
	set(&base.ManagePiecesEnabled, o.ManagePiecesEnabled)
	set(&base.ManageProjectsEnabled, o.ManageProjectsEnabled)
	set(&base.ManageTemplatesEnabled, o.ManageTemplatesEnabled)
	set(&base.CustomAppearanceEnabled, o.CustomAppearanceEnabled)
	set(&base.AnalyticsEnabled, o.AnalyticsEnabled)
	set(&base.AlertsEnabled, o.AlertsEnabled)
	set(&base.FlowIssuesEnabled, o.FlowIssuesEnabled)
	set(&base.EmbeddingEnabled, o.EmbeddingEnabled)
	set(&base.ShowPoweredBy, o.ShowPoweredBy)

	return base
}

// Baseline picks the feature set a key is overlaid on for an edition.
func Baseline(edition string) platform.Features {
	if edition == EditionCommunity {
		return TurnedOffFeatures()
	}
	return EnterpriseDefaults()
}

const (
	EditionEnterprise = "enterprise"
	EditionCommunity  = "community"
)
