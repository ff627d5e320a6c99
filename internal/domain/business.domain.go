package domain

import "time"

// BusinessDraft is the multi-step onboarding draft kept in redis until submit.
// Keys are "step_<n>", values are the raw fields posted for that step.
type BusinessDraft map[string]map[string]interface{}

type BusinessVerification struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"user_id"`
	BusinessName        string    `json:"business_name"`
	BusinessDescription string    `json:"business_description,omitempty"`
	BusinessType        string    `json:"business_type,omitempty"`
	BusinessCountry     string    `json:"business_country,omitempty"`
	RegistrationNumber  string    `json:"registration_number,omitempty"`
	OwnerName           string    `json:"owner_name,omitempty"`
	OwnerEmail          string    `json:"owner_email,omitempty"`
	PhoneNumber         string    `json:"phone_number,omitempty"`
	Website             string    `json:"website,omitempty"`
	City                string    `json:"city,omitempty"`
	State               string    `json:"state,omitempty"`
	PostalCode          string    `json:"postal_code,omitempty"`
	Status              string    `json:"status"` // submitted, approved, rejected
	SubmittedAt         time.Time `json:"submitted_at"`
}
