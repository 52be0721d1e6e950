package models

// Mode selects which reconciliation flow a run uses.
type Mode string

const (
	// ModeImport loads alumni rows keyed by NIM.
	ModeImport Mode = "import"
	// ModeTracer loads survey respondents, matching alumni by NIM or name.
	ModeTracer Mode = "responden"
	// ModeAlumniTotal recounts program totals from a program listing.
	ModeAlumniTotal Mode = "alumni-total"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeImport, ModeTracer, ModeAlumniTotal:
		return Mode(s), true
	case "tracer":
		return ModeTracer, true
	}
	return "", false
}

// NameMatch selects how a lookup compares a name with stored entity names.
// Every mode is case-insensitive and ignores surrounding whitespace.
type NameMatch int

const (
	// MatchExact requires equal names.
	MatchExact NameMatch = iota
	// MatchEither accepts a stored name containing the input or contained in it.
	MatchEither
	// MatchContains accepts a stored name containing the input.
	MatchContains
)
