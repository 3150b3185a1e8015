package license

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// LicenseKey is the entitlement snapshot returned by the licensing
// authority for one key.
type LicenseKey struct {
	ID           string     `json:"id"`
	Key          string     `json:"key"`
	ActivatedAt  *time.Time `json:"activatedAt,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	IsTrial      bool       `json:"isTrial"`
	Email        string     `json:"email,omitempty"`
	CustomerName string     `json:"customerName,omitempty"`

	FeatureOverrides
}

// UnmarshalJSON also accepts the authority's older field names
// (activationDate, expirationDate, created, updated).
func (k *LicenseKey) UnmarshalJSON(data []byte) error {
	type plain LicenseKey
	var aux struct {
		plain
		ActivationDate *time.Time `json:"activationDate"`
		ExpirationDate *time.Time `json:"expirationDate"`
		Created        *time.Time `json:"created"`
		Updated        *time.Time `json:"updated"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*k = LicenseKey(aux.plain)
	if k.ActivatedAt == nil {
		k.ActivatedAt = aux.ActivationDate
	}
	if k.ExpiresAt == nil {
		k.ExpiresAt = aux.ExpirationDate
	}
	if k.CreatedAt == nil {
		k.CreatedAt = aux.Created
	}
	if k.UpdatedAt == nil {
		k.UpdatedAt = aux.Updated
	}
	return nil
}

// Validate checks the record is usable: paid keys must carry both an
// activation and an expiration date.
func (k *LicenseKey) Validate() error {
	if k.IsTrial {
		return nil
	}
	if k.ActivatedAt == nil {
		return errors.New("license key has no activation date")
	}
	if k.ExpiresAt == nil {
		return errors.New("license key has no expiration date")
	}
	return nil
}

func (k *LicenseKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// FeatureOverrides holds the flags a license key sets. A nil field leaves
// the baseline value in place.
type FeatureOverrides struct {
	SSOEnabled               *bool `json:"ssoEnabled,omitempty"`
	AuditLogEnabled          *bool `json:"auditLogEnabled,omitempty"`
	EnvironmentsEnabled      *bool `json:"environmentsEnabled,omitempty"`
	CustomDomainsEnabled     *bool `json:"customDomainsEnabled,omitempty"`
	CustomRolesEnabled       *bool `json:"customRolesEnabled,omitempty"`
	ProjectRolesEnabled      *bool `json:"projectRolesEnabled,omitempty"`
	APIKeysEnabled           *bool `json:"apiKeysEnabled,omitempty"`
	GlobalConnectionsEnabled *bool `json:"globalConnectionsEnabled,omitempty"`
	ManagePiecesEnabled      *bool `json:"managePiecesEnabled,omitempty"`
	ManageProjectsEnabled    *bool `json:"manageProjectsEnabled,omitempty"`
	ManageTemplatesEnabled   *bool `json:"manageTemplatesEnabled,omitempty"`
	CustomAppearanceEnabled  *bool `json:"customAppearanceEnabled,omitempty"`
	AnalyticsEnabled         *bool `json:"analyticsEnabled,omitempty"`
	AlertsEnabled            *bool `json:"alertsEnabled,omitempty"`
	FlowIssuesEnabled        *bool `json:"flowIssuesEnabled,omitempty"`
	EmbeddingEnabled         *bool `json:"embeddingEnabled,omitempty"`
	ShowPoweredBy            *bool `json:"showPoweredBy,omitempty"`
}

type TrialRequest struct {
	Email             string `json:"email" validate:"required,email"`
	CompanyName       string `json:"companyName,omitempty" validate:"omitempty,max=255"`
	FullName          string `json:"fullName,omitempty" validate:"omitempty,max=255"`
	NumberOfEmployees string `json:"numberOfEmployees,omitempty"`
	Goal              string `json:"goal,omitempty"`
}

type SagaStep string

const (
	StepRevokeFeatures  SagaStep = "revoke_features"
	StepDeactivateUsers SagaStep = "deactivate_users"
	StepDeletePieces    SagaStep = "delete_pieces"
)

// DowngradeSaga tracks the progress of one platform's downgrade so a retry
// resumes at the first step that did not complete.
type DowngradeSaga struct {
	PlatformID       string         `gorm:"column:platform_id;primaryKey"`
	ID               int64          `gorm:"column:id;uniqueIndex"`
	FeaturesRevoked  bool           `gorm:"column:features_revoked"`
	UsersDeactivated bool           `gorm:"column:users_deactivated"`
	PiecesDeleted    bool           `gorm:"column:pieces_deleted"`
	Attempts         int            `gorm:"column:attempts"`
	LastError        string         `gorm:"column:last_error"`
	Failures         datatypes.JSON `gorm:"column:failures"`
	StartedAt        time.Time      `gorm:"column:started_at"`
	CompletedAt      *time.Time     `gorm:"column:completed_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"`
}

func (DowngradeSaga) TableName() string {
	return "license_downgrade_sagas"
}

func (s *DowngradeSaga) Completed() bool {
	return s.FeaturesRevoked && s.UsersDeactivated && s.PiecesDeleted
}

// Models lists the tables owned by this package for AutoMigrate.
func Models() []any {
	return []any{&DowngradeSaga{}}
}
