package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/config"
)

// Substitutes fill optional fields a row leaves empty. Zero values disable a substitute.
type Substitutes struct {
	EmailTemplate string
	Year          int
	Faculty       string
	Program       string
}

// Email renders the substitute address for nim.
func (s Substitutes) Email(nim string) (string, bool) {
	if s.EmailTemplate == "" || nim == "" {
		return "", false
	}
	if strings.Contains(s.EmailTemplate, "%s") {
		return fmt.Sprintf(s.EmailTemplate, nim), true
	}
	return s.EmailTemplate, true
}

// Profile selects the reconciliation behaviour of a pass.
type Profile struct {
	Mode               models.Mode
	RequireID          bool
	DedupeByID         bool
	MatchByName        bool
	TrackRespondents   bool
	RequireProgram     bool
	MarkOnlyWithStatus bool
	DefaultMarker      models.StatusMarker
	Substitutes        Substitutes
}

// ImportProfile loads alumni keyed by NIM.
func ImportProfile(pc config.ProfileConfig) Profile {
	return Profile{
		Mode:               models.ModeImport,
		RequireID:          true,
		DedupeByID:         true,
		MarkOnlyWithStatus: true,
		DefaultMarker:      models.StatusMarker(pc.DefaultMarker),
		Substitutes:        substitutes(pc),
	}
}

// TracerProfile loads survey respondents, matching alumni by NIM or by name.
func TracerProfile(pc config.ProfileConfig) Profile {
	return Profile{
		Mode:             models.ModeTracer,
		MatchByName:      true,
		TrackRespondents: true,
		RequireProgram:   true,
		DefaultMarker:    models.StatusMarker(pc.DefaultMarker),
		Substitutes:      substitutes(pc),
	}
}

func substitutes(pc config.ProfileConfig) Substitutes {
	year := pc.SubstituteYear
	switch {
	case year == 0:
		year = time.Now().Year()
	case year < 0:
		year = 0
	}
	return Substitutes{
		EmailTemplate: pc.SubstituteEmail,
		Year:          year,
		Faculty:       pc.SubstituteFaculty,
		Program:       pc.SubstituteProgram,
	}
}
