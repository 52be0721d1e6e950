package models

// StatusMarker is the canonical employment status attached to a respondent alumni.
type StatusMarker string

const (
	MarkerEmployed     StatusMarker = "Bekerja"
	MarkerSelfEmployed StatusMarker = "Wirausaha"
	MarkerStudying     StatusMarker = "Pendidikan Lanjut"
	MarkerUnemployed   StatusMarker = "Belum Bekerja"
)

// StatusMarkers lists the controlled vocabulary in seed order.
var StatusMarkers = []StatusMarker{MarkerEmployed, MarkerSelfEmployed, MarkerStudying, MarkerUnemployed}

// IsValid reports whether m belongs to the vocabulary.
func (m StatusMarker) IsValid() bool {
	for _, v := range StatusMarkers {
		if v == m {
			return true
		}
	}
	return false
}

// StatusOption is an opsi_jawaban row.
type StatusOption struct {
	ID    int64        `json:"id"`
	Label StatusMarker `json:"label"`
}
