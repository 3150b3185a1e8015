package platform

import "time"

type Platform struct {
	ID         string    `gorm:"column:id;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
	Name       string    `gorm:"column:name"`
	OwnerID    string    `gorm:"column:owner_id"`
	LicenseKey *string   `gorm:"column:license_key"`
	Features   Features  `gorm:"embedded"`
}

func (Platform) TableName() string {
	return "platforms"
}

// HasLicenseKey reports whether a non-empty license key is configured.
func (p *Platform) HasLicenseKey() bool {
	return p.LicenseKey != nil && *p.LicenseKey != ""
}

// Features is the projected entitlement of a platform. Every flag is always
// written; there is no partial state.
type Features struct {
	SSOEnabled               bool `gorm:"column:sso_enabled" json:"ssoEnabled"`
	AuditLogEnabled          bool `gorm:"column:audit_log_enabled" json:"auditLogEnabled"`
	EnvironmentsEnabled      bool `gorm:"column:environments_enabled" json:"environmentsEnabled"`
	CustomDomainsEnabled     bool `gorm:"column:custom_domains_enabled" json:"customDomainsEnabled"`
	CustomRolesEnabled       bool `gorm:"column:custom_roles_enabled" json:"customRolesEnabled"`
	ProjectRolesEnabled      bool `gorm:"column:project_roles_enabled" json:"projectRolesEnabled"`
	APIKeysEnabled           bool `gorm:"column:api_keys_enabled" json:"apiKeysEnabled"`
	GlobalConnectionsEnabled bool `gorm:"column:global_connections_enabled" json:"globalConnectionsEnabled"`
	ManagePiecesEnabled      bool `gorm:"column:manage_pieces_enabled" json:"managePiecesEnabled"`
	ManageProjectsEnabled    bool `gorm:"column:manage_projects_enabled" json:"manageProjectsEnabled"`
	ManageTemplatesEnabled   bool `gorm:"column:manage_templates_enabled" json:"manageTemplatesEnabled"`
	CustomAppearanceEnabled  bool `gorm:"column:custom_appearance_enabled" json:"customAppearanceEnabled"`
	AnalyticsEnabled         bool `gorm:"column:analytics_enabled" json:"analyticsEnabled"`
	AlertsEnabled            bool `gorm:"column:alerts_enabled" json:"alertsEnabled"`
	FlowIssuesEnabled        bool `gorm:"column:flow_issues_enabled" json:"flowIssuesEnabled"`
	EmbeddingEnabled         bool `gorm:"column:embedding_enabled" json:"embeddingEnabled"`
	ShowPoweredBy            bool `gorm:"column:show_powered_by" json:"showPoweredBy"`
}

// Columns maps every flag to its column, zero values included, so a single
// UPDATE replaces the whole set.
func (f Features) Columns() map[string]any {
	return map[string]any{
		"sso_enabled":                f.SSOEnabled,
		"audit_log_enabled":          f.AuditLogEnabled,
		"environments_enabled":       f.EnvironmentsEnabled,
		"custom_domains_enabled":     f.CustomDomainsEnabled,
		"custom_roles_enabled":       f.CustomRolesEnabled,
		"project_roles_enabled":      f.ProjectRolesEnabled,
		"api_keys_enabled":           f.APIKeysEnabled,
		"global_connections_enabled": f.GlobalConnectionsEnabled,
		"manage_pieces_enabled":      f.ManagePiecesEnabled,
		"manage_projects_enabled":    f.ManageProjectsEnabled,
		"manage_templates_enabled":   f.ManageTemplatesEnabled,
		"custom_appearance_enabled":  f.CustomAppearanceEnabled,
		"analytics_enabled":          f.AnalyticsEnabled,
		"alerts_enabled":             f.AlertsEnabled,
		"flow_issues_enabled":        f.FlowIssuesEnabled,
		"embedding_enabled":          f.EmbeddingEnabled,
		"show_powered_by":            f.ShowPoweredBy,
	}
}
