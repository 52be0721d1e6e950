package models

// StatusCount is one slice of the employment status distribution.
type StatusCount struct {
	Label StatusMarker `json:"label"`
	Total int64        `json:"total"`
}

// YearCount is the number of alumni graduating in a year.
type YearCount struct {
	Year  int   `json:"year"`
	Total int64 `json:"total"`
}

// ProgramAchievement is the response rate of one program.
type ProgramAchievement struct {
	FacultyID       int64  `json:"facultyId"`
	FacultyName     string `json:"facultyName"`
	ProgramID       int64  `json:"programId"`
	ProgramName     string `json:"programName"`
	InputCount      int64  `json:"jumlahInput"`
	RespondentCount int64  `json:"jumlahResponden"`
}

// Dashboard setting keys maintained after every pass.
const (
	SettingTotalAlumni     = "total_alumni"
	SettingTotalRespondent = "total_responden"
)

// YearAchievement is the status coverage of one program's graduating class:
// how many of its alumni carry a status marker.
type YearAchievement struct {
	Year        int    `json:"year"`
	FacultyID   int64  `json:"facultyId"`
	FacultyName string `json:"facultyName"`
	ProgramID   int64  `json:"programId"`
	ProgramName string `json:"programName"`
	AlumniCount int64  `json:"jumlahAlumni"`
	MarkedCount int64  `json:"jumlahTerisi"`
}
