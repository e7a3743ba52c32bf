package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type MemberType string

const (
	MemberPrincipal MemberType = "PRINCIPAL"
	MemberDependent MemberType = "DEPENDENT"
)

func (t MemberType) Valid() bool {
	return t == MemberPrincipal || t == MemberDependent
}

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type EmploymentStatus string

const (
	Employed     EmploymentStatus = "EMPLOYED"
	SelfEmployed EmploymentStatus = "SELF_EMPLOYED"
	Unemployed   EmploymentStatus = "UNEMPLOYED"
	Student      EmploymentStatus = "STUDENT"
)

func (s EmploymentStatus) Valid() bool {
	switch s {
	case Employed, SelfEmployed, Unemployed, Student:
		return true
	}
	return false
}

type Member struct {
	ID                snowflake.ID     `json:"id" gorm:"primaryKey"`
	UserID            *snowflake.ID    `json:"user_id,omitempty"`
	NationalID        string           `json:"national_id"`
	FirstName         string           `json:"first_name"`
	MiddleName        string           `json:"middle_name"`
	LastName          string           `json:"last_name"`
	DateOfBirth       time.Time        `json:"date_of_birth"`
	Gender            Gender           `json:"gender"`
	Email             string           `json:"email"`
	PhoneNumber       string           `json:"phone_number"`
	SHANumber         string           `json:"sha_number" gorm:"column:sha_number"`
	MemberType        MemberType       `json:"member_type"`
	PrincipalMemberID *snowflake.ID    `json:"principal_member_id,omitempty"`
	EmploymentStatus  EmploymentStatus `json:"employment_status"`
	EmployerID        *snowflake.ID    `json:"employer_id,omitempty"`
	RegistrationDate  time.Time        `json:"registration_date"`
	IsActive          bool             `json:"is_active"`
	IsSubsidized      bool             `json:"is_subsidized"`
	County            string           `json:"county"`
	SubCounty         string           `json:"sub_county"`
	Ward              string           `json:"ward"`
	PostalAddress     string           `json:"postal_address"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (Member) TableName() string { return "members" }

func (m Member) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.FirstName, m.MiddleName, m.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
