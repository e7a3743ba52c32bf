package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleSHAOfficer     Role = "SHA_OFFICER"
	RoleEmployer       Role = "EMPLOYER"
	RoleProvider       Role = "PROVIDER"
	RoleMember         Role = "MEMBER"
	RoleClaimsOfficer  Role = "CLAIMS_OFFICER"
	RoleFinanceOfficer Role = "FINANCE_OFFICER"
)

var Roles = []Role{
	RoleAdmin, RoleSHAOfficer, RoleEmployer, RoleProvider,
	RoleMember, RoleClaimsOfficer, RoleFinanceOfficer,
}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Role         Role         `json:"role"`
	PhoneNumber  string       `json:"phone_number"`
	IsVerified   bool         `json:"is_verified"`
	IsActive     bool         `json:"is_active"`
	PasswordHash *string      `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
