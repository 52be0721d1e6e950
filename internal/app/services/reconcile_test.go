package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracerstudy/tracer-sync/internal/app/columns"
	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/config"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/tabular"
)

var testImportConfig = config.ProfileConfig{
	DefaultMarker:     "Bekerja",
	SubstituteEmail:   "dummy_%s@unand.ac.id",
	SubstituteYear:    2023,
	SubstituteFaculty: "Fakultas Teknologi Informasi",
	SubstituteProgram: "Sistem Informasi",
}

var testTracerConfig = config.ProfileConfig{DefaultMarker: "Belum Bekerja"}

func loadCSV(t *testing.T, data string) (*tabular.Table, columns.Mapping) {
	t.Helper()
	tb, err := tabular.Load([]byte(data), tabular.DefaultOptions(tabular.PersonIndicators))
	require.NoError(t, err)
	return tb, columns.Detect(tb)
}

func newTestEngine() *Engine {
	return NewEngine(defaultResolver(), NewAggregateUpdater())
}

func runPass(t *testing.T, s *memStore, p Profile, data string) (*Result, error) {
	t.Helper()
	tb, m := loadCSV(t, data)
	e := newTestEngine()
	var res *Result
	err := s.RunPass(context.Background(), func(ctx context.Context, store Store) error {
		var err error
		res, err = e.Run(ctx, store, tb, m, p)
		return err
	})
	return res, err
}

// assertCounters checks that every stored counter equals its exact count.
func assertCounters(t *testing.T, s *memStore) {
	t.Helper()
	var total int64
	for _, p := range s.programs {
		var alumni, respondents int64
		for _, a := range s.alumni {
			if a.ProgramID != nil && *a.ProgramID == p.ID {
				alumni++
			}
		}
		for _, r := range s.respondents {
			if r.ProgramID != nil && *r.ProgramID == p.ID {
				respondents++
			}
		}
		assert.Equal(t, alumni, p.InputCount, "jumlah_input of %s", p.Name)
		assert.Equal(t, respondents, p.RespondentCount, "jumlah_responden of %s", p.Name)
		total += p.InputCount
	}
	for _, f := range s.faculties {
		var sum int64
		for _, p := range s.programs {
			if p.FacultyID == f.ID {
				sum += p.InputCount
			}
		}
		assert.Equal(t, sum, f.InputCount, "jumlah_input of %s", f.Name)
	}
	assert.Equal(t, strconv.FormatInt(total, 10), s.settings[models.SettingTotalAlumni])
}

func TestEngineCleanInsert(t *testing.T) {
	s := newMemStore()
	c := seedCampus(s)

	res, err := runPass(t, s, ImportProfile(testImportConfig),
		"nim,nama,fakultas,prodi,email,tahun_lulus,status\n"+
			"2011521001,Budi Santoso,Fakultas Teknologi Informasi,Sistem Informasi,budi@example.com,2022,Bekerja\n")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, int64(1), s.program(c.si).InputCount)

	a := s.alumniByNIM("2011521001")
	require.NotNil(t, a)
	assert.Equal(t, "Budi Santoso", a.Name)
	assert.Equal(t, "budi@example.com", *a.Email)
	assert.Equal(t, 2022, *a.GraduationYear)
	assert.Equal(t, c.si, *a.ProgramID)
	assert.Equal(t, models.MarkerEmployed, s.marker(a.ID))
	assertCounters(t, s)
}

func TestEngineImportAppliesSubstitutes(t *testing.T) {
	s := newMemStore()
	c := seedCampus(s)

	res, err := runPass(t, s, ImportProfile(testImportConfig), "nim,nama\n2011521001,Budi Santoso\n")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	a := s.alumniByNIM("2011521001")
	require.NotNil(t, a)
	assert.Equal(t, "dummy_2011521001@unand.ac.id", *a.Email)
	assert.Equal(t, 2023, *a.GraduationYear)
	assert.Equal(t, c.si, *a.ProgramID)
	assert.Empty(t, s.marker(a.ID), "import marks only rows with a status value")
}

func TestEngineDuplicateIDImportIsEliminated(t *testing.T) {
	s := newMemStore()
	c := seedCampus(s)

	res, err := runPass(t, s, ImportProfile(testImportConfig),
		"nim,nama,prodi\n"+
			"20012345,Budi Santoso,Sistem Informasi\n"+
			"20012345,Budi S,Sistem Informasi\n"+
			"123,Pendek,Sistem Informasi\n")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Eliminated)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, int64(1), s.program(c.si).InputCount)
	assert.Equal(t, "Budi Santoso", s.alumniByNIM("20012345").Name)
	assertCounters(t, s)
}

func TestEngineDuplicateIDTracerIsUpdate(t *testing.T) {
	s := newMemStore()
	c := seedCampus(s)

	res, err := runPass(t, s, TracerProfile(testTracerConfig),
		"nim,nama,prodi,status\n"+
			"20012345,Budi Santoso,Sistem Informasi,Bekerja\n"+
			"20012345,Budi Santoso,Sistem Informasi,Bekerja\n")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.RespondentsAdded)
	assert.Equal(t, int64(1), s.program(c.si).InputCount)
	assert.Equal(t, int64(1), s.program(c.si).RespondentCount)
	assert.Len(t, s.respondents, 1)
	assert.Equal(t, "1", s.settings[models.SettingTotalRespondent])
	assertCounters(t, s)
}

func TestEngineBlankNameIsSkipped(t *testing.T) {
	s := newMemStore()
	seedCampus(s)

	res, err := runPass(t, s, ImportProfile(testImportConfig),
		"nim,nama,prodi\n"+
			"20012345,Budi Santoso,Sistem Informasi\n"+
			"20012346,   ,Sistem Informasi\n")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Nil(t, s.alumniByNIM("20012346"))
	assertCounters(t, s)
}

func TestEngineIdempotentRecount(t *testing.T) {
	s := newMemStore()
	seedCampus(s)
	data := "nim,nama,fakultas,prodi\n" +
		"20012345,Budi Santoso,Fakultas Teknik,Teknik Sipil\n" +
		"20012346,Citra Lestari,Fakultas Teknologi Informasi,Sistem Informasi\n" +
		"20012347,Dewi Anggraini,Fakultas Teknologi Informasi,Teknik Komputer\n"

	first, err := runPass(t, s, ImportProfile(testImportConfig), data)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)
	programs, faculties, settings := s.snapshot().programs, s.snapshot().faculties, s.snapshot().settings

	second, err := runPass(t, s, ImportProfile(testImportConfig), data)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Updated)

	assert.Equal(t, programs, s.programs)
	assert.Equal(t, faculties, s.faculties)
	assert.Equal(t, settings, s.settings)
	assert.Len(t, s.alumni, 3)
	assertCounters(t, s)
}

func TestEngineIDsStayUnique(t *testing.T) {
	s := newMemStore()
	seedCampus(s)

	_, err := runPass(t, s, TracerProfile(testTracerConfig),
		"nim,nama,prodi\n"+
			"20012345,Budi Santoso,Sistem Informasi\n"+
			"20012345,Budi Santoso,Teknik Komputer\n"+
			"20012346,Citra Lestari,Sistem Informasi\n"+
			"20012346,Citra Lestari,Sistem Informasi\n")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, a := range s.alumni {
		require.NotNil(t, a.NIM)
		assert.False(t, seen[*a.NIM], "duplicate nim %s", *a.NIM)
		seen[*a.NIM] = true
	}
	assert.Len(t, seen, 2)
	assertCounters(t, s)
}

func TestEngineMovesAlumniBetweenPrograms(t *testing.T) {
	s := newMemStore()
	c := seedCampus(s)

	_, err := runPass(t, s, ImportProfile(testImportConfig), "nim,nama,prodi\n20012345,Budi Santoso,Sistem Informasi\n")
	require.NoError(t, err)
	require.Equal(t, int64(1), s.program(c.si).InputCount)

	res, err := runPass(t, s, ImportProfile(testImportConfig),
		"nim,nama,fakultas,prodi\n20012345,Budi Santoso,Fakultas Teknik,Teknik Sipil\n")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, int64(0), s.program(c.si).InputCount)
	assert.Equal(t, int64(1), s.program(c.sipil).InputCount)
	assertCounters(t, s)
}

func TestEngineTracerMatchesByName(t *testing.T) {
	s := newMemStore()
	c := seedCampus(s)
	si := c.si
	s.alumni = append(s.alumni, models.Alumni{ID: 1, Name: "Budi Santoso", ProgramID: &si})

	res, err := runPass(t, s, TracerProfile(testTracerConfig),
		"nama,prodi,status\n"+
			"budi santoso,Sistem Informasi,Bekerja\n"+
			"Citra Lestari,Sistem Informasi,lainnya\n")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.RespondentsAdded)
	assert.Equal(t, models.MarkerEmployed, s.marker(1))

	var citra *models.Alumni
	for i := range s.alumni {
		if s.alumni[i].Name == "Citra Lestari" {
			citra = &s.alumni[i]
		}
	}
	require.NotNil(t, citra)
	assert.Equal(t, models.MarkerUnemployed, s.marker(citra.ID), "unrecognised status falls back to the profile default")
	for _, r := range s.respondents {
		assert.Nil(t, r.NIM)
		assert.Equal(t, 1, r.InputCount)
	}
	assertCounters(t, s)
}

func TestEngineTracerSkipsRowsWithoutProgram(t *testing.T) {
	s := newMemStore()
	seedCampus(s)

	res, err := runPass(t, s, TracerProfile(testTracerConfig),
		"nim,nama,prodi\n20012345,Budi Santoso,Sistem Informasi\n20012346,Citra Lestari,\n")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
}

func TestEngineMarkIsOnce(t *testing.T) {
	s := newMemStore()
	seedCampus(s)
	data := "nim,nama,prodi,status\n20012345,Budi Santoso,Sistem Informasi,Wiraswasta\n"

	first, err := runPass(t, s, ImportProfile(testImportConfig), data)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Marked)

	second, err := runPass(t, s, ImportProfile(testImportConfig),
		"nim,nama,prodi,status\n20012345,Budi Santoso,Sistem Informasi,Bekerja\n")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Marked)
	assert.Equal(t, models.MarkerSelfEmployed, s.marker(s.alumniByNIM("20012345").ID))
}

func TestEngineRowFailureIsIsolated(t *testing.T) {
	s := newMemStore()
	c := seedCampus(s)
	s.fail = func(op string, arg any) error {
		if op == "CreateAlumni" && arg == "Citra Lestari" {
			return errors.New("value too long for column")
		}
		return nil
	}

	res, err := runPass(t, s, ImportProfile(testImportConfig),
		"nim,nama,prodi\n"+
			"20012345,Budi Santoso,Sistem Informasi\n"+
			"20012346,Citra Lestari,Sistem Informasi\n"+
			"20012347,Dewi Anggraini,Sistem Informasi\n")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Nil(t, s.alumniByNIM("20012346"))
	assert.Equal(t, int64(2), s.program(c.si).InputCount)
	assertCounters(t, s)
}

func TestEngineConnectionErrorAbortsPass(t *testing.T) {
	s := newMemStore()
	seedCampus(s)
	s.fail = func(op string, arg any) error {
		if op == "CreateAlumni" && arg == "Citra Lestari" {
			return &pgconn.PgError{Code: "08006", Message: "connection failure"}
		}
		return nil
	}

	_, err := runPass(t, s, ImportProfile(testImportConfig),
		"nim,nama,prodi\n"+
			"20012345,Budi Santoso,Sistem Informasi\n"+
			"20012346,Citra Lestari,Sistem Informasi\n")
	require.Error(t, err)
	assert.Empty(t, s.alumni, "nothing is committed")
	assert.Empty(t, s.settings)
}

func TestEngineRecomputesWhenCounterColumnsAdded(t *testing.T) {
	s := newMemStore()
	c := seedCampus(s)
	tk := c.tk
	s.alumni = append(s.alumni, models.Alumni{ID: 1, Name: "Lama", ProgramID: &tk})
	s.columnsMissing = true

	_, err := runPass(t, s, ImportProfile(testImportConfig), "nim,nama,prodi\n20012345,Budi Santoso,Sistem Informasi\n")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.program(c.tk).InputCount)
	assert.Equal(t, int64(2), s.faculties[0].InputCount)
	assertCounters(t, s)
}

func TestCheckColumns(t *testing.T) {
	_, m := loadCSV(t, "nama,prodi\nBudi Santoso,Sistem Informasi\n")

	err := CheckColumns(m, ImportProfile(testImportConfig))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMissingColumn))

	assert.NoError(t, CheckColumns(m, TracerProfile(testTracerConfig)))
}
