package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
)

type fakeReports struct {
	settings     map[string]string
	statuses     []models.StatusCount
	years        []models.YearCount
	achievements []models.ProgramAchievement
	history      []models.YearAchievement
	historyYear  int
}

func (f *fakeReports) GetSettings(context.Context) (map[string]string, error) { return f.settings, nil }
func (f *fakeReports) StatusDistribution(context.Context) ([]models.StatusCount, error) {
	return f.statuses, nil
}
func (f *fakeReports) GraduatesPerYear(context.Context) ([]models.YearCount, error) { return f.years, nil }
func (f *fakeReports) ProgramAchievements(context.Context) ([]models.ProgramAchievement, error) {
	return f.achievements, nil
}
func (f *fakeReports) AchievementHistory(_ context.Context, year int) ([]models.YearAchievement, error) {
	f.historyYear = year
	return f.history, nil
}

func TestDashboardTotals(t *testing.T) {
	svc := NewDashboardService(&fakeReports{
		settings: map[string]string{models.SettingTotalAlumni: "120", models.SettingTotalRespondent: "45"},
		statuses: []models.StatusCount{{Label: models.MarkerEmployed, Total: 30}},
		years:    []models.YearCount{{Year: 2022, Total: 120}},
	})

	d, err := svc.GetDashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(120), d.TotalAlumni)
	assert.Equal(t, int64(45), d.TotalRespondents)
	assert.Equal(t, 37.5, d.ResponseRate)
	assert.Len(t, d.StatusDistribution, 1)
	assert.Len(t, d.GraduatesPerYear, 1)
}

func TestDashboardMissingSettings(t *testing.T) {
	d, err := NewDashboardService(&fakeReports{settings: map[string]string{models.SettingTotalAlumni: "n/a"}}).GetDashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.TotalAlumni)
	assert.Zero(t, d.ResponseRate)
}

func TestCapaianGroupsByFaculty(t *testing.T) {
	svc := NewDashboardService(&fakeReports{achievements: []models.ProgramAchievement{
		{FacultyID: 1, FacultyName: "FTI", ProgramID: 10, ProgramName: "Sistem Informasi", InputCount: 3, RespondentCount: 1},
		{FacultyID: 1, FacultyName: "FTI", ProgramID: 11, ProgramName: "Teknik Komputer", InputCount: 1, RespondentCount: 1},
		{FacultyID: 2, FacultyName: "FT", ProgramID: 20, ProgramName: "Teknik Sipil"},
	}})

	got, err := svc.GetCapaian(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].InputCount)
	assert.Equal(t, int64(2), got[0].RespondentCount)
	assert.Equal(t, 50.0, got[0].ResponseRate)
	assert.Equal(t, 33.33, got[0].Programs[0].ResponseRate)
	assert.Zero(t, got[1].ResponseRate)
}

func TestRiwayatGroupsByYear(t *testing.T) {
	reports := &fakeReports{history: []models.YearAchievement{
		{Year: 2023, FacultyID: 1, FacultyName: "FTI", ProgramID: 10, ProgramName: "Sistem Informasi", AlumniCount: 4, MarkedCount: 3},
		{Year: 2023, FacultyID: 2, FacultyName: "FT", ProgramID: 20, ProgramName: "Teknik Sipil", AlumniCount: 4, MarkedCount: 1},
		{Year: 2022, FacultyID: 1, FacultyName: "FTI", ProgramID: 10, ProgramName: "Sistem Informasi", AlumniCount: 2},
	}}

	got, err := NewDashboardService(reports).GetRiwayat(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got.Years, 2)

	y := got.Years[0]
	assert.Equal(t, 2023, y.Year)
	assert.Equal(t, int64(8), y.AlumniCount)
	assert.Equal(t, int64(4), y.MarkedCount)
	assert.Equal(t, 50.0, y.Capaian)
	require.Len(t, y.Programs, 2)
	assert.Equal(t, 75.0, y.Programs[0].Capaian)
	assert.Equal(t, 25.0, y.Programs[1].Capaian)

	assert.Equal(t, 2022, got.Years[1].Year)
	assert.Zero(t, got.Years[1].Capaian)

	assert.Equal(t, int64(10), got.TotalAlumni)
	assert.Equal(t, 33.3, got.AverageCapaian)
	assert.Equal(t, 2, got.TotalPrograms)
	assert.Equal(t, 2, got.TotalFaculties)
}

func TestRiwayatEmptyAndFiltered(t *testing.T) {
	reports := &fakeReports{}
	got, err := NewDashboardService(reports).GetRiwayat(context.Background(), 2021)
	require.NoError(t, err)
	assert.Equal(t, 2021, reports.historyYear)
	assert.Empty(t, got.Years)
	assert.Zero(t, got.AverageCapaian)
}
