package models

// Program represents a prodi row owned by exactly one faculty.
type Program struct {
	ID              int64    `json:"id"`
	FacultyID       int64    `json:"facultyId"`
	Name            string   `json:"name"`
	InputCount      int64    `json:"jumlahInput"`
	RespondentCount int64    `json:"jumlahResponden"`
	Faculty         *Faculty `json:"faculty,omitempty"`
}
