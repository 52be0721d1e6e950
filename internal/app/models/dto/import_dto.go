package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
)

// ImportResultResponse is the result document of an import-mode pass.
type ImportResultResponse struct {
	Success        bool   `json:"success"`
	RunID          string `json:"run_id,omitempty"`
	Encoding       string `json:"encoding"`
	SkipRows       int    `json:"skip_rows"`
	Inserted       int    `json:"inserted"`
	Updated        int    `json:"updated"`
	Eliminated     int    `json:"eliminated"`
	Skipped        int    `json:"skipped"`
	TotalProcessed int    `json:"total_processed"`
}

// TracerResultResponse is the result document of a responden-mode pass.
// Updated counts the programs whose counters were refreshed.
type TracerResultResponse struct {
	Success        bool   `json:"success"`
	RunID          string `json:"run_id,omitempty"`
	Encoding       string `json:"encoding"`
	SkipRows       int    `json:"skip_rows"`
	Updated        int    `json:"updated"`
	TotalResponden int64  `json:"total_responden"`
	AddedAlumni    int    `json:"added_alumni"`
	AddedResponden int    `json:"added_responden"`
	MatchedAlumni  int    `json:"matched_alumni"`
	Marked         int    `json:"marked"`
	Skipped        int    `json:"skipped"`
	TotalProcessed int    `json:"total_processed"`
}

// AlumniTotalResponse is the result document of an alumni-total recount.
type AlumniTotalResponse struct {
	Success     bool           `json:"success"`
	RunID       string         `json:"run_id,omitempty"`
	Encoding    string         `json:"encoding"`
	SkipRows    int            `json:"skip_rows"`
	Updated     int            `json:"updated"`
	TotalAlumni int64          `json:"total_alumni"`
	ProdiCounts map[string]int `json:"prodi_counts"`
	Unresolved  int            `json:"unresolved"`
}

// PreviewResponse is the preview document.
type PreviewResponse struct {
	Success bool `json:"success"`
	*services.PreviewResult
}

// ImportRunResponse is one entry of the run history.
type ImportRunResponse struct {
	ID             uuid.UUID  `json:"id"`
	Mode           string     `json:"mode"`
	SourceName     string     `json:"source_name"`
	Encoding       string     `json:"encoding"`
	SkipRows       int        `json:"skip_rows"`
	Inserted       int        `json:"inserted"`
	Updated        int        `json:"updated"`
	Skipped        int        `json:"skipped"`
	Eliminated     int        `json:"eliminated"`
	TotalProcessed int        `json:"total_processed"`
	Success        bool       `json:"success"`
	Error          *string    `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// RiwayatQuery binds the optional graduation year filter.
type RiwayatQuery struct {
	Year int `form:"tahun" binding:"omitempty,min=2000,max=2035"`
}

// ListRunsQuery binds the run history query string.
type ListRunsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

func runID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// NewOutcomeResponse picks the result document matching the outcome's mode.
func NewOutcomeResponse(out *services.ImportOutcome) interface{} {
	switch {
	case out.Recount != nil:
		r := out.Recount
		counts := r.ProgramCounts
		if counts == nil {
			counts = map[string]int{}
		}
		return AlumniTotalResponse{
			Success:     true,
			RunID:       runID(out.RunID),
			Encoding:    out.Encoding,
			SkipRows:    out.SkipRows,
			Updated:     r.Updated,
			TotalAlumni: r.TotalAlumni,
			ProdiCounts: counts,
			Unresolved:  r.Unresolved,
		}
	case out.Mode == models.ModeTracer && out.Pass != nil:
		p := out.Pass
		return TracerResultResponse{
			Success:        true,
			RunID:          runID(out.RunID),
			Encoding:       out.Encoding,
			SkipRows:       out.SkipRows,
			Updated:        p.Aggregates.Programs,
			TotalResponden: p.Aggregates.TotalRespondents,
			AddedAlumni:    p.Inserted,
			AddedResponden: p.RespondentsAdded,
			MatchedAlumni:  p.Updated,
			Marked:         p.Marked,
			Skipped:        p.Skipped,
			TotalProcessed: p.Total,
		}
	default:
		resp := ImportResultResponse{
			Success:  true,
			RunID:    runID(out.RunID),
			Encoding: out.Encoding,
			SkipRows: out.SkipRows,
		}
		if p := out.Pass; p != nil {
			resp.Inserted = p.Inserted
			resp.Updated = p.Updated
			resp.Eliminated = p.Eliminated
			resp.Skipped = p.Skipped
			resp.TotalProcessed = p.Total
		}
		return resp
	}
}

// NewPreviewResponse wraps a preview result
func NewPreviewResponse(p *services.PreviewResult) PreviewResponse {
	return PreviewResponse{Success: true, PreviewResult: p}
}

// NewImportRunResponses converts the run history for the API
func NewImportRunResponses(runs []models.ImportRun) []ImportRunResponse {
	out := make([]ImportRunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, ImportRunResponse{
			ID:             r.ID,
			Mode:           string(r.Mode),
			SourceName:     r.SourceName,
			Encoding:       r.Encoding,
			SkipRows:       r.SkipRows,
			Inserted:       r.Inserted,
			Updated:        r.Updated,
			Skipped:        r.Skipped,
			Eliminated:     r.Eliminated,
			TotalProcessed: r.Total,
			Success:        r.Success,
			Error:          r.Error,
			StartedAt:      r.StartedAt,
			FinishedAt:     r.FinishedAt,
		})
	}
	return out
}
