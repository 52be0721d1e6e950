package services

import (
	"context"
	"math"
	"strconv"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// Dashboard is the summary shown on the reporting dashboard.
type Dashboard struct {
	TotalAlumni        int64                `json:"total_alumni"`
	TotalRespondents   int64                `json:"total_responden"`
	ResponseRate       float64              `json:"response_rate"`
	StatusDistribution []models.StatusCount `json:"status_distribution"`
	GraduatesPerYear   []models.YearCount   `json:"graduates_per_year"`
}

// ProgramCapaian is one row of the response-rate report.
type ProgramCapaian struct {
	ProgramID       int64   `json:"prodi_id"`
	ProgramName     string  `json:"prodi"`
	InputCount      int64   `json:"jumlah_input"`
	RespondentCount int64   `json:"jumlah_responden"`
	ResponseRate    float64 `json:"persentase"`
}

// FacultyCapaian groups program rows under their faculty.
type FacultyCapaian struct {
	FacultyID       int64            `json:"fakultas_id"`
	FacultyName     string           `json:"fakultas"`
	InputCount      int64            `json:"jumlah_input"`
	RespondentCount int64            `json:"jumlah_responden"`
	ResponseRate    float64          `json:"persentase"`
	Programs        []ProgramCapaian `json:"prodi"`
}

// ProgramYearCapaian is one program's share of a graduating class.
type ProgramYearCapaian struct {
	FacultyName string  `json:"fakultas"`
	ProgramID   int64   `json:"prodi_id"`
	ProgramName string  `json:"prodi"`
	AlumniCount int64   `json:"jumlah_alumni"`
	MarkedCount int64   `json:"jumlah_terisi"`
	Capaian     float64 `json:"capaian"`
}

// YearCapaian is the status coverage of one graduation year.
type YearCapaian struct {
	Year        int                  `json:"tahun_lulus"`
	AlumniCount int64                `json:"jumlah_alumni"`
	MarkedCount int64                `json:"jumlah_terisi"`
	Capaian     float64              `json:"capaian"`
	Programs    []ProgramYearCapaian `json:"prodi"`
}

// Riwayat is the per-year achievement history with its summary figures.
// AverageCapaian is the mean over program rows, rounded to one decimal.
type Riwayat struct {
	Years          []YearCapaian `json:"tahun"`
	TotalAlumni    int64         `json:"total_alumni"`
	AverageCapaian float64       `json:"rata_rata_capaian"`
	TotalPrograms  int           `json:"total_prodi"`
	TotalFaculties int           `json:"total_fakultas"`
}

// DashboardService defines the interface for reporting operations
type DashboardService interface {
	GetDashboard(ctx context.Context) (*Dashboard, error)
	GetCapaian(ctx context.Context) ([]FacultyCapaian, error)
	GetRiwayat(ctx context.Context, year int) (*Riwayat, error)
}

type dashboardServiceImpl struct {
	reports ReportStore
}

// NewDashboardService creates a new dashboard service instance
func NewDashboardService(reports ReportStore) DashboardService {
	return &dashboardServiceImpl{reports: reports}
}

func (s *dashboardServiceImpl) GetDashboard(ctx context.Context) (*Dashboard, error) {
	settings, err := s.reports.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := s.reports.StatusDistribution(ctx)
	if err != nil {
		return nil, err
	}
	years, err := s.reports.GraduatesPerYear(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalAlumni:        settingInt(settings, models.SettingTotalAlumni),
		TotalRespondents:   settingInt(settings, models.SettingTotalRespondent),
		StatusDistribution: statuses,
		GraduatesPerYear:   years,
	}
	d.ResponseRate = rate(d.TotalRespondents, d.TotalAlumni)
	return d, nil
}

func (s *dashboardServiceImpl) GetCapaian(ctx context.Context) ([]FacultyCapaian, error) {
	rows, err := s.reports.ProgramAchievements(ctx)
	if err != nil {
		return nil, err
	}

	out := []FacultyCapaian{}
	index := map[int64]int{}
	for _, r := range rows {
		i, ok := index[r.FacultyID]
		if !ok {
			out = append(out, FacultyCapaian{FacultyID: r.FacultyID, FacultyName: r.FacultyName})
			i = len(out) - 1
			index[r.FacultyID] = i
		}
		f := &out[i]
		f.InputCount += r.InputCount
		f.RespondentCount += r.RespondentCount
		f.Programs = append(f.Programs, ProgramCapaian{
			ProgramID:       r.ProgramID,
			ProgramName:     r.ProgramName,
			InputCount:      r.InputCount,
			RespondentCount: r.RespondentCount,
			ResponseRate:    rate(r.RespondentCount, r.InputCount),
		})
	}
	for i := range out {
		out[i].ResponseRate = rate(out[i].RespondentCount, out[i].InputCount)
	}
	return out, nil
}

// GetRiwayat groups program rows by graduation year, newest year first. A
// positive year limits the history to that year.
func (s *dashboardServiceImpl) GetRiwayat(ctx context.Context, year int) (*Riwayat, error) {
	rows, err := s.reports.AchievementHistory(ctx, year)
	if err != nil {
		return nil, err
	}

	out := &Riwayat{Years: []YearCapaian{}}
	programs := map[int64]struct{}{}
	faculties := map[int64]struct{}{}
	var rateSum float64
	for _, r := range rows {
		n := len(out.Years)
		if n == 0 || out.Years[n-1].Year != r.Year {
			out.Years = append(out.Years, YearCapaian{Year: r.Year})
			n++
		}
		y := &out.Years[n-1]
		pc := rate(r.MarkedCount, r.AlumniCount)
		y.AlumniCount += r.AlumniCount
		y.MarkedCount += r.MarkedCount
		y.Programs = append(y.Programs, ProgramYearCapaian{
			FacultyName: r.FacultyName,
			ProgramID:   r.ProgramID,
			ProgramName: r.ProgramName,
			AlumniCount: r.AlumniCount,
			MarkedCount: r.MarkedCount,
			Capaian:     pc,
		})

		out.TotalAlumni += r.AlumniCount
		rateSum += pc
		programs[r.ProgramID] = struct{}{}
		faculties[r.FacultyID] = struct{}{}
	}
	for i := range out.Years {
		out.Years[i].Capaian = rate(out.Years[i].MarkedCount, out.Years[i].AlumniCount)
	}
	if len(rows) > 0 {
		out.AverageCapaian = math.Round(rateSum/float64(len(rows))*10) / 10
	}
	out.TotalPrograms = len(programs)
	out.TotalFaculties = len(faculties)
	return out, nil
}

func settingInt(settings map[string]string, key string) int64 {
	v, ok := settings[key]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("Dashboard setting is not a number")
		return 0
	}
	return n
}

// rate returns part/total as a percentage rounded to two decimals.
func rate(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
