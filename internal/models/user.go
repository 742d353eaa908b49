package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Username     string         `json:"username" gorm:"unique;not null"`
	Email        string         `json:"email"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	PasswordHash string         `json:"-" gorm:"not null"`
	Role         string         `json:"role" gorm:"default:'customer'"` // superuser, staff, customer
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

type UserRole string

const (
	RoleSuperuser UserRole = "superuser"
	RoleStaff     UserRole = "staff"
	RoleCustomer  UserRole = "customer"
)

// IsStaff reports whether the user may reach staff-only endpoints.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperuser, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

func (u *User) IsStaff() bool {
	return u.Role == string(RoleStaff) || u.Role == string(RoleSuperuser)
}
