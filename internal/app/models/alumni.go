package models

import "time"

// Alumni is a known graduate. NIM is unique when present.
type Alumni struct {
	ID             int64     `json:"id"`
	NIM            *string   `json:"nim,omitempty"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	GraduationYear *int      `json:"graduationYear,omitempty"`
	ProgramID      *int64    `json:"programId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Respondent is a person confirmed to have answered the survey.
type Respondent struct {
	ID             int64     `json:"id"`
	NIM            *string   `json:"nim,omitempty"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	GraduationYear *int      `json:"graduationYear,omitempty"`
	ProgramID      *int64    `json:"programId,omitempty"`
	InputCount     int       `json:"jumlahInput"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
