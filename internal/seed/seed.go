package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Catalog is the reference data the reconciliation engine resolves against.
type Catalog struct {
	Faculties []FacultySeed `yaml:"fakultas" validate:"dive"`
}

// FacultySeed is one faculty and the programs it owns.
type FacultySeed struct {
	Name     string   `yaml:"nama" validate:"required"`
	Programs []string `yaml:"prodi" validate:"dive,required"`
}

// FacultyWriter creates faculties idempotently.
type FacultyWriter interface {
	EnsureFaculty(ctx context.Context, name string) (int64, error)
}

// ProgramWriter creates programs idempotently.
type ProgramWriter interface {
	EnsureProgram(ctx context.Context, facultyID int64, name string) (int64, error)
}

// LoadCatalog reads and validates a YAML seed file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i := range c.Faculties {
		c.Faculties[i].Name = strings.TrimSpace(c.Faculties[i].Name)
		for j, p := range c.Faculties[i].Programs {
			c.Faculties[i].Programs[j] = strings.TrimSpace(p)
		}
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return c, nil
}

// CreateDefaultData makes sure every faculty and program of the catalog
// exists. Failures are collected so one bad entry does not stop the rest.
func CreateDefaultData(ctx context.Context, faculties FacultyWriter, programs ProgramWriter, c *Catalog, lgr zerolog.Logger) error {
	lgr.Info().Int("faculties", len(c.Faculties)).Msg("Checking/Creating reference data (Fakultas/Prodi)...")
	var finalErr error

	for _, f := range c.Faculties {
		facultyID, err := faculties.EnsureFaculty(ctx, f.Name)
		if err != nil {
			lgr.Error().Err(err).Str("fakultas", f.Name).Msg("Error creating faculty")
			finalErr = errors.Join(finalErr, err)
			continue
		}

		for _, p := range f.Programs {
			if _, err := programs.EnsureProgram(ctx, facultyID, p); err != nil {
				lgr.Error().Err(err).Str("fakultas", f.Name).Str("prodi", p).Msg("Error creating program")
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	lgr.Info().Msg("Reference data check/creation finished.")
	return finalErr
}
