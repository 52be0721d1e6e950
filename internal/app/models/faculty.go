package models

// Faculty represents a fakultas row. Faculties are seeded, never created by a reconciliation pass.
type Faculty struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InputCount int64  `json:"jumlahInput"`
}
