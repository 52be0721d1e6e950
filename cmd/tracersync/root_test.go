package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/config"
	"github.com/tracerstudy/tracer-sync/internal/pkg/auth"
)

type fakeImporter struct {
	mode     models.Mode
	src      services.Source
	err      error
	calls    int
	released bool
}

func (f *fakeImporter) Import(_ context.Context, mode models.Mode, src services.Source) (*services.ImportOutcome, error) {
	f.calls++
	f.mode, f.src = mode, src
	if f.err != nil {
		return nil, f.err
	}
	return &services.ImportOutcome{
		RunID:    uuid.New(),
		Mode:     mode,
		Encoding: "utf-8",
		Pass:     &services.Result{Mode: mode, Inserted: 2, Updated: 1, Total: 3, RespondentsAdded: 3},
	}, nil
}

func (f *fakeImporter) Preview(_ context.Context, src services.Source) (*services.PreviewResult, error) {
	f.calls++
	f.src = src
	return &services.PreviewResult{Headers: []string{"nim"}, TotalRows: 1, Encoding: "utf-8"}, nil
}

func (f *fakeImporter) ListRuns(context.Context, int) ([]models.ImportRun, error) {
	return nil, nil
}

type fakeOperators struct {
	username string
	password string
	role     auth.Role
}

func (f *fakeOperators) Login(context.Context, string, string) (*services.Session, error) {
	return nil, errors.New("not used")
}

func (f *fakeOperators) CreateOperator(_ context.Context, username, password string, role auth.Role) (*models.Operator, error) {
	f.username, f.password, f.role = username, password, role
	return &models.Operator{ID: 1, Username: username, PasswordHash: "hash", Role: string(role)}, nil
}

func (f *fakeOperators) ListOperators(context.Context) ([]models.Operator, error) { return nil, nil }

func (f *fakeOperators) DeleteOperator(context.Context, int64, string) error { return nil }

type harness struct {
	out       bytes.Buffer
	importer  *fakeImporter
	operators *fakeOperators
	dir       string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return &harness{importer: &fakeImporter{}, operators: &fakeOperators{}, dir: dir}
}

func (h *harness) run(args ...string) int {
	h.out.Reset()
	c := &cli{
		out: &h.out,
		newImporter: func(context.Context, *config.Config, zerolog.Logger) (services.ImportService, func(), error) {
			return h.importer, func() { h.importer.released = true }, nil
		},
		newOperators: func(context.Context, *config.Config, zerolog.Logger) (services.OperatorService, func(), error) {
			return h.operators, func() {}, nil
		},
	}
	return run(c, append([]string{"--config", "missing.yaml"}, args...))
}

func (h *harness) result(t *testing.T) map[string]interface{} {
	t.Helper()
	require.Equal(t, 1, strings.Count(h.out.String(), "\n"), "exactly one result line: %q", h.out.String())
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &doc))
	return doc
}

func (h *harness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestCommands(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "alumni.csv", "nim,nama\n")

	require.Equal(t, 0, h.run("import", path))
	doc := h.result(t)
	assert.Equal(t, true, doc["success"])
	assert.EqualValues(t, 2, doc["inserted"])
	assert.EqualValues(t, 3, doc["total_processed"])
	assert.Equal(t, models.ModeImport, h.importer.mode)
	assert.Equal(t, "alumni.csv", h.importer.src.Name)
	assert.True(t, h.importer.released)

	require.Equal(t, 0, h.run("responden", path))
	doc = h.result(t)
	assert.Equal(t, models.ModeTracer, h.importer.mode)
	assert.EqualValues(t, 3, doc["added_responden"])

	require.Equal(t, 0, h.run("alumni-total", path))
	assert.Equal(t, models.ModeAlumniTotal, h.importer.mode)
}

func TestPreviewCommandNeedsNoDatabase(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile(t, "a.csv", "Laporan Tracer Study 2023\nnim;nama;prodi\n20012345;Budi Santoso;Sistem Informasi\n")

	var out bytes.Buffer
	c := &cli{
		out: &out,
		newImporter: func(context.Context, *config.Config, zerolog.Logger) (services.ImportService, func(), error) {
			t.Error("preview must not open the database")
			return nil, nil, errors.New("database unavailable")
		},
	}
	require.Equal(t, 0, run(c, []string{"--config", "missing.yaml", "preview", path}), out.String())

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, true, doc["success"])
	assert.Equal(t, []interface{}{"nim", "nama", "prodi"}, doc["headers"])
	assert.EqualValues(t, 1, doc["total_rows"])
	assert.EqualValues(t, 1, doc["skip_rows"])
	assert.Zero(t, h.importer.calls)

	empty := h.writeFile(t, "empty.csv", "nim,nama\n")
	out.Reset()
	assert.Equal(t, 1, run(c, []string{"--config", "missing.yaml", "preview", empty}))
	assert.Contains(t, out.String(), "no data rows")
}

func TestIngestCommandFailures(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run("import"), "missing positional argument")
	assert.Equal(t, false, h.result(t)["success"])
	assert.Zero(t, h.importer.calls)

	assert.Equal(t, 1, h.run("import", filepath.Join(h.dir, "nope.csv")))
	assert.Contains(t, h.result(t)["error"], "nope.csv")
	assert.Zero(t, h.importer.calls)

	path := h.writeFile(t, "a.csv", "x\n")
	h.importer.err = errors.New("column nim not found")
	assert.Equal(t, 1, h.run("import", path))
	doc := h.result(t)
	assert.Equal(t, false, doc["success"])
	assert.Equal(t, "column nim not found", doc["error"])
}

func TestTokenCommand(t *testing.T) {
	h := newHarness(t)
	t.Setenv("JWT_SECRET", "")

	assert.Equal(t, 1, h.run("token", "--operator", "ops"), "no secret configured")
	assert.Equal(t, false, h.result(t)["success"])

	t.Setenv("JWT_SECRET", "s3cret")
	require.Equal(t, 0, h.run("token", "--operator", "ops", "--role", "admin", "--ttl", "1h"))
	doc := h.result(t)
	assert.Equal(t, "Bearer", doc["token_type"])
	assert.Equal(t, "admin", doc["role"])

	jwt := auth.NewJWTService(auth.JWTConfig{SecretKey: "s3cret", AccessTokenExp: time.Hour, TokenIssuer: "tracer-sync"})
	claims, err := jwt.ValidateToken(doc["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Operator)
	assert.Equal(t, auth.RoleAdmin, claims.Role)

	assert.Equal(t, 1, h.run("token", "--operator", "ops", "--role", "root"))
	assert.Contains(t, h.result(t)["error"], "unknown role")
}

func TestOperatorCreateCommand(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("operator", "create", "--username", "admin", "--password", "admin123"))
	doc := h.result(t)
	assert.Equal(t, true, doc["success"])
	assert.Equal(t, "admin", doc["username"])
	assert.Equal(t, "admin", doc["role"], "operators created from the CLI default to admin")
	assert.NotContains(t, h.out.String(), "hash")
	assert.Equal(t, "admin123", h.operators.password)

	require.Equal(t, 0, h.run("operator", "create", "--username", "staff", "--password", "staff123", "--role", "viewer"))
	assert.Equal(t, auth.RoleViewer, h.operators.role)

	assert.Equal(t, 1, h.run("operator", "create", "--username", "staff"), "password is required")
	assert.Equal(t, 1, h.run("operator", "create", "--username", "x", "--password", "secret1", "--role", "root"))
	assert.Contains(t, h.result(t)["error"], "unknown role")
}
