package models

import (
	"time"

	"github.com/marketplace/backend/internal/domain/identity"
)

// UserModel maps the users table
type UserModel struct {
	VersionedRecord
	Email        string        `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name         string        `gorm:"type:varchar(100);not null"`
	PasswordHash string        `gorm:"type:varchar(255);not null"`
	Role         identity.Role `gorm:"type:varchar(20);not null;index"`
	Active       bool          `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.aggregate(),
		Email:             m.Email,
		Name:              m.Name,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		Active:            m.Active,
		LastLoginAt:       m.LastLoginAt,
	}
}

func UserModelFromDomain(u *identity.User) *UserModel {
	return &UserModel{
		VersionedRecord: versionedOf(u.BaseAggregateRoot),
		Email:           u.Email,
		Name:            u.Name,
		PasswordHash:    u.PasswordHash,
		Role:            u.Role,
		Active:          u.Active,
		LastLoginAt:     u.LastLoginAt,
	}
}
