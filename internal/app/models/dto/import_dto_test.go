package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
)

func decode(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestOutcomeResponseImport(t *testing.T) {
	id := uuid.New()
	m := decode(t, NewOutcomeResponse(&services.ImportOutcome{
		RunID: id,
		Mode:  models.ModeImport,
		Pass:  &services.Result{Inserted: 2, Updated: 1, Eliminated: 1, Skipped: 3, Total: 6},
	}))

	assert.Equal(t, true, m["success"])
	assert.Equal(t, id.String(), m["run_id"])
	assert.EqualValues(t, 2, m["inserted"])
	assert.EqualValues(t, 1, m["eliminated"])
	assert.EqualValues(t, 6, m["total_processed"])
}

func TestOutcomeResponseTracer(t *testing.T) {
	m := decode(t, NewOutcomeResponse(&services.ImportOutcome{
		Mode: models.ModeTracer,
		Pass: &services.Result{
			Inserted: 1, Updated: 4, RespondentsAdded: 2,
			Aggregates: services.AggregateSummary{Programs: 3, TotalRespondents: 9},
		},
	}))

	assert.NotContains(t, m, "run_id")
	assert.EqualValues(t, 3, m["updated"], "updated reports refreshed programs")
	assert.EqualValues(t, 9, m["total_responden"])
	assert.EqualValues(t, 1, m["added_alumni"])
	assert.EqualValues(t, 2, m["added_responden"])
}

func TestOutcomeResponseAlumniTotal(t *testing.T) {
	m := decode(t, NewOutcomeResponse(&services.ImportOutcome{
		Mode:    models.ModeAlumniTotal,
		Recount: &services.RecountResult{Updated: 1, TotalAlumni: 10, Unresolved: 2},
	}))

	assert.EqualValues(t, 10, m["total_alumni"])
	assert.Equal(t, map[string]interface{}{}, m["prodi_counts"])
	assert.EqualValues(t, 2, m["unresolved"])
}

func TestPreviewResponseFlattens(t *testing.T) {
	m := decode(t, NewPreviewResponse(&services.PreviewResult{Headers: []string{"nim"}, TotalRows: 4}))
	assert.Equal(t, true, m["success"])
	assert.EqualValues(t, 4, m["total_rows"])
	assert.Equal(t, []interface{}{"nim"}, m["headers"])
}

func TestCommandError(t *testing.T) {
	m := decode(t, NewCommandError(errors.New("required column not found: nim")))
	assert.Equal(t, false, m["success"])
	assert.Equal(t, "required column not found: nim", m["error"])
}
