package user

import "time"

type PlatformRole string

const (
	RoleAdmin    PlatformRole = "ADMIN"
	RoleMember   PlatformRole = "MEMBER"
	RoleOperator PlatformRole = "OPERATOR"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

type User struct {
	ID           string       `gorm:"column:id;primaryKey"`
	CreatedAt    time.Time    `gorm:"column:created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at"`
	PlatformID   string       `gorm:"column:platform_id;index"`
	Email        string       `gorm:"column:email"`
	PlatformRole PlatformRole `gorm:"column:platform_role"`
	Status       Status       `gorm:"column:status"`
}

func (User) TableName() string {
	return "users"
}

type UpdateParams struct {
	ID           string
	PlatformID   string
	Status       Status
	PlatformRole PlatformRole
}
