package services

import (
	"context"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/metrics"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
	"github.com/tracerstudy/tracer-sync/internal/pkg/textnorm"
)

// minFuzzyLength keeps very short inputs out of the fuzzy tier, where they
// would match almost any name.
const minFuzzyLength = 4

// ResolverOptions configures the fallbacks of the entity resolver.
type ResolverOptions struct {
	DefaultFaculty string
	DefaultProgram string
	Fuzzy          bool
}

// Resolver maps free-text faculty and program names onto existing rows.
// It never creates entities.
type Resolver struct {
	opts ResolverOptions
}

// NewResolver creates a new Resolver
func NewResolver(opts ResolverOptions) *Resolver {
	return &Resolver{opts: opts}
}

func idOf(id int64) *int64 { return &id }

// ResolveFaculty returns the faculty for name. It returns nil only when no
// faculty exists at all.
//
// Lookup order is exact match, person-name guard, partial match, fuzzy match,
// then the default. The guard comes after the exact match so that a faculty
// stored under a capitalized name such as "Teknologi Informasi" is still
// found. It only keeps person names away from the partial and fuzzy matches.
func (r *Resolver) ResolveFaculty(ctx context.Context, s FacultyStore, name string) (*int64, error) {
	n, ok := textnorm.Name(name)
	if !ok {
		return r.defaultFaculty(ctx, s)
	}

	f, err := s.FindFaculty(ctx, n, models.MatchExact)
	if err == nil {
		return idOf(f.ID), nil
	}
	if !isMiss(err) {
		return nil, err
	}
	if textnorm.LooksLikePersonName(n) {
		logger.Debug().Str("value", n).Msg("Faculty value looks like a person name, using default faculty")
		return r.defaultFaculty(ctx, s)
	}

	f, err = s.FindFaculty(ctx, n, models.MatchEither)
	if err == nil {
		return idOf(f.ID), nil
	}
	if !isMiss(err) {
		return nil, err
	}

	if r.opts.Fuzzy && len(n) >= minFuzzyLength {
		all, err := s.ListFaculties(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(all))
		for i, f := range all {
			names[i] = f.Name
		}
		if i, ok := bestFuzzy(n, names); ok {
			logger.Debug().Str("value", n).Str("faculty", all[i].Name).Msg("Faculty resolved by fuzzy match")
			return idOf(all[i].ID), nil
		}
	}

	logger.Warn().Str("value", n).Msg("Faculty not found, using default faculty")
	return r.defaultFaculty(ctx, s)
}

func (r *Resolver) defaultFaculty(ctx context.Context, s FacultyStore) (*int64, error) {
	metrics.ResolverFallback("faculty")
	if r.opts.DefaultFaculty != "" {
		f, err := s.FindFaculty(ctx, r.opts.DefaultFaculty, models.MatchContains)
		if err == nil {
			return idOf(f.ID), nil
		}
		if !isMiss(err) {
			return nil, err
		}
	}
	f, err := s.FirstFaculty(ctx)
	if err != nil {
		if isMiss(err) {
			return nil, nil
		}
		return nil, err
	}
	return idOf(f.ID), nil
}

// ResolveProgram returns the program for name within facultyID. Without a
// faculty it returns nil.
func (r *Resolver) ResolveProgram(ctx context.Context, s ProgramStore, name string, facultyID *int64) (*int64, error) {
	if facultyID == nil {
		return nil, nil
	}
	n, ok := textnorm.Name(name)
	if !ok {
		return r.defaultProgram(ctx, s, facultyID)
	}

	p, err := s.FindProgram(ctx, n, models.MatchExact, facultyID)
	if err == nil {
		return idOf(p.ID), nil
	}
	if !isMiss(err) {
		return nil, err
	}

	p, err = s.FindProgram(ctx, n, models.MatchExact, nil)
	if err == nil {
		logger.Warn().Str("program", n).Int64("faculty_id", *facultyID).Int64("program_faculty_id", p.FacultyID).
			Msg("Program matched under a different faculty")
		return idOf(p.ID), nil
	}
	if !isMiss(err) {
		return nil, err
	}

	p, err = s.FindProgram(ctx, n, models.MatchEither, facultyID)
	if err == nil {
		return idOf(p.ID), nil
	}
	if !isMiss(err) {
		return nil, err
	}

	if r.opts.Fuzzy && len(n) >= minFuzzyLength {
		list, err := s.ListPrograms(ctx, facultyID)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(list))
		for i, p := range list {
			names[i] = p.Name
		}
		if i, ok := bestFuzzy(n, names); ok {
			logger.Debug().Str("value", n).Str("program", list[i].Name).Msg("Program resolved by fuzzy match")
			return idOf(list[i].ID), nil
		}
	}

	logger.Warn().Str("program", n).Int64("faculty_id", *facultyID).Msg("Program not found, using default program")
	return r.defaultProgram(ctx, s, facultyID)
}

// defaultProgram walks: first program of the faculty, configured default, any program.
func (r *Resolver) defaultProgram(ctx context.Context, s ProgramStore, facultyID *int64) (*int64, error) {
	metrics.ResolverFallback("program")
	p, err := s.FirstProgram(ctx, facultyID)
	if err == nil {
		return idOf(p.ID), nil
	}
	if !isMiss(err) {
		return nil, err
	}

	if r.opts.DefaultProgram != "" {
		p, err = s.FindProgram(ctx, r.opts.DefaultProgram, models.MatchContains, nil)
		if err == nil {
			return idOf(p.ID), nil
		}
		if !isMiss(err) {
			return nil, err
		}
	}

	p, err = s.FirstProgram(ctx, nil)
	if err != nil {
		if isMiss(err) {
			return nil, nil
		}
		return nil, err
	}
	return idOf(p.ID), nil
}

// ResolveProgramByName matches a program across all faculties without any
// default fallback. It is used when only program totals are recounted.
func (r *Resolver) ResolveProgramByName(ctx context.Context, s ProgramStore, name string) (*int64, error) {
	n, ok := textnorm.Name(name)
	if !ok {
		return nil, nil
	}
	for _, match := range []models.NameMatch{models.MatchExact, models.MatchEither} {
		p, err := s.FindProgram(ctx, n, match, nil)
		if err == nil {
			return idOf(p.ID), nil
		}
		if !isMiss(err) {
			return nil, err
		}
	}
	return nil, nil
}

// bestFuzzy returns the index of the closest candidate containing the
// letters of name in order, ignoring case and diacritics.
func bestFuzzy(name string, candidates []string) (int, bool) {
	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	if len(ranks) == 0 {
		return 0, false
	}
	sort.Sort(ranks)
	return ranks[0].OriginalIndex, true
}
