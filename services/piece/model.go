package piece

import "time"

type PackageType string

const (
	// PackageTypeArchive marks a piece uploaded privately to one platform.
	PackageTypeArchive  PackageType = "ARCHIVE"
	PackageTypeRegistry PackageType = "REGISTRY"
)

type PieceType string

const (
	PieceTypeOfficial PieceType = "OFFICIAL"
	PieceTypeCustom   PieceType = "CUSTOM"
)

type Edition string

const (
	EditionCommunity  Edition = "community"
	EditionEnterprise Edition = "enterprise"
)

type Piece struct {
	ID                      string      `gorm:"column:id;primaryKey"`
	CreatedAt               time.Time   `gorm:"column:created_at"`
	UpdatedAt               time.Time   `gorm:"column:updated_at"`
	Name                    string      `gorm:"column:name;index"`
	Version                 string      `gorm:"column:version"`
	PackageType             PackageType `gorm:"column:package_type"`
	PieceType               PieceType   `gorm:"column:piece_type"`
	PlatformID              *string     `gorm:"column:platform_id;index"`
	ProjectID               string      `gorm:"column:project_id"`
	MinimumSupportedRelease string      `gorm:"column:minimum_supported_release"`
	MaximumSupportedRelease string      `gorm:"column:maximum_supported_release"`
	Hidden                  bool        `gorm:"column:hidden"`
}

func (Piece) TableName() string {
	return "pieces"
}

// OwnedBy reports whether the piece was installed privately on platformID.
// Shared pieces have no owner.
func (p *Piece) OwnedBy(platformID string) bool {
	return p.PlatformID != nil && *p.PlatformID == platformID
}

// ListParams selects the pieces visible to a platform on a release.
type ListParams struct {
	Edition       Edition
	IncludeHidden bool
	Release       string
	PlatformID    string
}
