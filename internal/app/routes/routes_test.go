package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracerstudy/tracer-sync/internal/app/controllers"
	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/middleware"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/auth"
)

type fakeImports struct {
	gotMode models.Mode
	gotSrc  services.Source
	err     error
}

func (f *fakeImports) Import(_ context.Context, mode models.Mode, src services.Source) (*services.ImportOutcome, error) {
	f.gotMode, f.gotSrc = mode, src
	if f.err != nil {
		return nil, f.err
	}
	return &services.ImportOutcome{
		RunID: uuid.New(),
		Mode:  mode,
		Pass:  &services.Result{Mode: mode, Inserted: 1, Total: 1},
	}, nil
}

func (f *fakeImports) Preview(_ context.Context, src services.Source) (*services.PreviewResult, error) {
	return &services.PreviewResult{Headers: []string{"nim", "nama"}, TotalRows: 1}, nil
}

func (f *fakeImports) ListRuns(_ context.Context, limit int) ([]models.ImportRun, error) {
	return []models.ImportRun{{ID: uuid.New(), Mode: models.ModeImport, Success: true}}, nil
}

type fakeDashboard struct{}

func (fakeDashboard) GetDashboard(context.Context) (*services.Dashboard, error) {
	return &services.Dashboard{TotalAlumni: 10, TotalRespondents: 5, ResponseRate: 50}, nil
}

func (fakeDashboard) GetCapaian(context.Context) ([]services.FacultyCapaian, error) {
	return []services.FacultyCapaian{{FacultyID: 1, FacultyName: "FTI"}}, nil
}

func (fakeDashboard) GetRiwayat(_ context.Context, year int) (*services.Riwayat, error) {
	return &services.Riwayat{Years: []services.YearCapaian{{Year: year}}}, nil
}

type fakeOperators struct {
	jwt     *auth.JWTService
	deleted []int64
	actor   string
}

func (f *fakeOperators) Login(_ context.Context, username, password string) (*services.Session, error) {
	if username != "admin" || password != "admin123" {
		return nil, apperrors.ErrInvalidCredentials
	}
	token, exp, err := f.jwt.GenerateToken(username, auth.RoleAdmin, 0)
	if err != nil {
		return nil, err
	}
	return &services.Session{Token: token, Operator: username, Role: auth.RoleAdmin, ExpiresAt: exp}, nil
}

func (f *fakeOperators) CreateOperator(_ context.Context, username, _ string, role auth.Role) (*models.Operator, error) {
	if username == "taken" {
		return nil, fmt.Errorf("%w: username %q is already taken", apperrors.ErrConflict, username)
	}
	if role == "" {
		role = auth.RoleViewer
	}
	return &models.Operator{ID: 2, Username: username, PasswordHash: "hash", Role: string(role)}, nil
}

func (f *fakeOperators) ListOperators(context.Context) ([]models.Operator, error) {
	return []models.Operator{{ID: 1, Username: "admin", PasswordHash: "hash", Role: "admin"}}, nil
}

func (f *fakeOperators) DeleteOperator(_ context.Context, id int64, actor string) error {
	if id == 404 {
		return apperrors.ErrOperatorNotFound
	}
	f.deleted = append(f.deleted, id)
	f.actor = actor
	return nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type fixture struct {
	router    *gin.Engine
	imports   *fakeImports
	operators *fakeOperators
	viewer    string
	admin     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwt := auth.NewJWTService(auth.JWTConfig{SecretKey: "s3cret", AccessTokenExp: time.Hour, TokenIssuer: "tracer-sync"})
	imports := &fakeImports{}
	operators := &fakeOperators{jwt: jwt}
	r := gin.New()
	SetupSystemRoutes(r, pinger{}, "/metrics")
	SetupRouter(r,
		controllers.NewImportController(imports, 1<<20),
		controllers.NewDashboardController(fakeDashboard{}),
		controllers.NewOperatorController(operators),
		middleware.NewAuthMiddleware(jwt),
	)

	viewer, _, err := jwt.GenerateToken("viewer", auth.RoleViewer, 0)
	require.NoError(t, err)
	admin, _, err := jwt.GenerateToken("admin", auth.RoleAdmin, 0)
	require.NoError(t, err)
	return &fixture{router: r, imports: imports, operators: operators, viewer: viewer, admin: admin}
}

func (f *fixture) upload(t *testing.T, path, token, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) sendJSON(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesUsableToken(t *testing.T) {
	f := newFixture(t)

	w := f.sendJSON(http.MethodPost, "/api/v1/auth/login", "", `{"username":"admin","password":"admin123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data struct {
			Token     string `json:"token"`
			TokenType string `json:"token_type"`
			Role      string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Bearer", body.Data.TokenType)
	assert.Equal(t, "admin", body.Data.Role)

	assert.Equal(t, http.StatusOK, f.get("/api/v1/operators", body.Data.Token).Code)

	w = f.sendJSON(http.MethodPost, "/api/v1/auth/login", "", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), string(dto.ErrorCodeInvalidCredentials))

	assert.Equal(t, http.StatusBadRequest, f.sendJSON(http.MethodPost, "/api/v1/auth/login", "", `{"username":"admin"}`).Code)
}

func TestOperatorEndpoints(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusForbidden, f.get("/api/v1/operators", f.viewer).Code)
	assert.Equal(t, http.StatusUnauthorized, f.get("/api/v1/operators", "").Code)

	w := f.get("/api/v1/operators", f.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hash")

	w = f.sendJSON(http.MethodPost, "/api/v1/operators", f.admin, `{"username":"staff","password":"staff123","role":"viewer"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"staff"`)

	assert.Equal(t, http.StatusConflict,
		f.sendJSON(http.MethodPost, "/api/v1/operators", f.admin, `{"username":"taken","password":"staff123"}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		f.sendJSON(http.MethodPost, "/api/v1/operators", f.admin, `{"username":"staff","password":"123","role":"root"}`).Code)

	assert.Equal(t, http.StatusNoContent, f.sendJSON(http.MethodDelete, "/api/v1/operators/7", f.admin, "").Code)
	assert.Equal(t, []int64{7}, f.operators.deleted)
	assert.Equal(t, "admin", f.operators.actor)
	assert.Equal(t, http.StatusNotFound, f.sendJSON(http.MethodDelete, "/api/v1/operators/404", f.admin, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.sendJSON(http.MethodDelete, "/api/v1/operators/abc", f.admin, "").Code)
}

func TestImportEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.upload(t, "/api/v1/imports/tracer", f.admin, "resp.csv", "nim,nama,prodi\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ModeTracer, f.imports.gotMode, "tracer is an alias of responden")
	assert.Equal(t, "resp.csv", f.imports.gotSrc.Name)

	var body struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Contains(t, body.Data, "added_alumni")
}

func TestImportEndpointErrors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusForbidden, f.upload(t, "/api/v1/imports/import", f.viewer, "a.csv", "x").Code)
	assert.Equal(t, http.StatusNotFound, f.upload(t, "/api/v1/imports/bogus", f.admin, "a.csv", "x").Code)
	assert.Equal(t, http.StatusBadRequest, f.upload(t, "/api/v1/imports/import", f.admin, "", "").Code)

	f.imports.err = apperrors.NewMissingColumnError("nim")
	assert.Equal(t, http.StatusUnprocessableEntity, f.upload(t, "/api/v1/imports/import", f.admin, "a.csv", "x").Code)

	f.imports.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, f.upload(t, "/api/v1/imports/import", f.admin, "a.csv", "x").Code)
}

func TestUploadTooLarge(t *testing.T) {
	f := newFixture(t)
	big := string(bytes.Repeat([]byte("a"), 1<<20+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, f.upload(t, "/api/v1/previews", f.admin, "big.csv", big).Code)
}

func TestUploadBodyCappedBeforeParsing(t *testing.T) {
	f := newFixture(t)
	huge := string(bytes.Repeat([]byte("a"), 3<<20))

	w := f.upload(t, "/api/v1/imports/import", f.admin, "huge.csv", huge)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "maximum size is 1048576 bytes")
	assert.Empty(t, f.imports.gotSrc.Name, "the pass never runs")
}

func TestReadEndpoints(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.get("/api/v1/dashboard", "").Code)
	assert.Equal(t, http.StatusOK, f.get("/api/v1/dashboard", f.viewer).Code)
	assert.Equal(t, http.StatusOK, f.get("/api/v1/capaian", f.viewer).Code)
	assert.Equal(t, http.StatusOK, f.get("/api/v1/riwayat", f.viewer).Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/api/v1/riwayat?tahun=1990", f.viewer).Code)
	assert.Equal(t, http.StatusOK, f.get("/api/v1/imports?limit=10", f.viewer).Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/api/v1/imports?limit=500", f.viewer).Code)
	assert.Equal(t, http.StatusOK, f.upload(t, "/api/v1/previews", f.admin, "a.csv", "nim\n1").Code)
}

func TestRiwayatEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/v1/riwayat?tahun=2023", f.viewer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data services.Riwayat `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Years, 1)
	assert.Equal(t, 2023, body.Data.Years[0].Year)
}

func TestSystemRoutes(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.get("/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.get("/metrics", "").Code)

	r := gin.New()
	SetupSystemRoutes(r, pinger{err: errors.New("down")}, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
