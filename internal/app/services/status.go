package services

import (
	"strings"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
)

var statusKeywords = []struct {
	marker   models.StatusMarker
	keywords []string
}{
	{models.MarkerSelfEmployed, []string{"wirausaha", "wiraswasta", "perusahaan sendiri"}},
	{models.MarkerStudying, []string{"melanjutkan pendidikan", "pendidikan lanjut", "study lanjut", "studi lanjut"}},
	{models.MarkerUnemployed, []string{"belum bekerja", "tidak kerja", "mencari kerja", "mencari", "belum pasti"}},
	{models.MarkerEmployed, []string{"bekerja"}},
}

// MapStatus maps free-text status onto the marker vocabulary. Text matching
// no keyword yields fallback.
func MapStatus(status string, fallback models.StatusMarker) models.StatusMarker {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return fallback
	}
	for _, group := range statusKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(s, kw) {
				return group.marker
			}
		}
	}
	return fallback
}

var respondentKeywords = []string{"bekerja", "wirausaha", "pendidikan", "mencari", "tidak kerja tetapi"}

// IsRespondent decides whether a row counts as a survey answer. Explicit
// status text wins over the employment flag, which wins over identity.
func IsRespondent(status, flag string, hasID, hasName bool) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if s != "" {
		for _, kw := range respondentKeywords {
			if strings.Contains(s, kw) {
				return true
			}
		}
		if strings.Contains(s, "belum") && !strings.Contains(s, "mencari") {
			return false
		}
	}

	f := strings.ToLower(strings.TrimSpace(flag))
	if f == "ya" || strings.Contains(f, "mendapatkan") {
		return true
	}

	return hasID || hasName
}
