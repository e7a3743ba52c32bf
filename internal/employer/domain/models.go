package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Employer struct {
	ID                         snowflake.ID  `json:"id" gorm:"primaryKey"`
	EmployerCode               string        `json:"employer_code"`
	CompanyName                string        `json:"company_name"`
	KRAPin                     string        `json:"kra_pin" gorm:"column:kra_pin"`
	BusinessRegistrationNumber string        `json:"business_registration_number"`
	Email                      string        `json:"email"`
	PhoneNumber                string        `json:"phone_number"`
	PhysicalAddress            string        `json:"physical_address"`
	County                     string        `json:"county"`
	ContactPersonName          string        `json:"contact_person_name"`
	ContactPersonPhone         string        `json:"contact_person_phone"`
	ContactPersonEmail         string        `json:"contact_person_email"`
	BankName                   string        `json:"bank_name"`
	BankAccountNumber          string        `json:"bank_account_number"`
	BankBranch                 string        `json:"bank_branch"`
	RegistrationDate           time.Time     `json:"registration_date"`
	IsActive                   bool          `json:"is_active"`
	UserID                     *snowflake.ID `json:"user_id,omitempty"`
	CreatedAt                  time.Time     `json:"created_at"`
	UpdatedAt                  time.Time     `json:"updated_at"`
}

func (Employer) TableName() string { return "employers" }
