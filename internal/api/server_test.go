package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/cognee"
	"github.com/cognee-ai/cognee-go/internal/config"
	"github.com/cognee-ai/cognee-go/internal/types"
)

const testSecret = "test-signing-secret"

type apiFixture struct {
	app    *cognee.App
	server *httptest.Server
}

func setupAPI(t *testing.T, authEnabled bool) *apiFixture {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "cognee.db")
	cfg.Storage.Isolated = true
	cfg.Storage.DataRoot = filepath.Join(dir, "data")
	cfg.Pipeline.BatchSize = 4
	cfg.Pipeline.Concurrency = 2
	cfg.API.AuthEnabled = authEnabled
	cfg.API.JWTSecret = testSecret

	app, err := cognee.Build(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv := NewServer(app.Service, cfg.API, app.Logger)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		app.Close()
	})
	return &apiFixture{app: app, server: ts}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func signToken(t *testing.T, userID types.ID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

const apiDoc = `Marie Curie worked with Pierre Curie in Paris.
Marie Curie discovered Polonium.`

func TestAPI_AddCognifySearchFlow(t *testing.T) {
	fx := setupAPI(t, false)

	resp := fx.do(t, http.MethodPost, "/v1/add", "", addRequest{
		Dataset: "notes",
		Items:   []string{apiDoc},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var added cognee.AddResult
	decodeBody(t, resp, &added)
	assert.Equal(t, 1, added.ItemsAdded)
	assert.Greater(t, added.ChunksStored, 0)

	resp = fx.do(t, http.MethodPost, "/v1/cognify", "", cognifyRequest{Datasets: []string{"notes"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report cognee.CognifyReport
	decodeBody(t, resp, &report)
	require.Len(t, report.Results, 1)
	assert.Greater(t, report.Results[0].Nodes, 0)

	resp = fx.do(t, http.MethodGet, "/v1/datasets/status?dataset=notes", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status statusResponse
	decodeBody(t, resp, &status)
	assert.Equal(t, "notes", status.Dataset)
	assert.Equal(t, cognee.PipelineCognify, status.Pipeline)
	require.NotNil(t, status.Run)
	assert.Equal(t, "completed", status.Run.Status)

	resp = fx.do(t, http.MethodPost, "/v1/search", "", searchRequest{
		Query: "Marie Curie",
		Type:  "chunks",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result cognee.SearchResult
	decodeBody(t, resp, &result)
	assert.NotEmpty(t, result.Hits)
}

func TestAPI_StatusUnknownDatasetIs404(t *testing.T) {
	fx := setupAPI(t, false)

	resp := fx.do(t, http.MethodGet, "/v1/datasets/status?dataset=missing", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body errorBody
	decodeBody(t, resp, &body)
	assert.Equal(t, string(types.ErrCodeNotFound), body.Code)
}

func TestAPI_ValidationErrorsAre400(t *testing.T) {
	fx := setupAPI(t, false)

	resp := fx.do(t, http.MethodPost, "/v1/add", "", addRequest{Dataset: "notes"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorBody
	decodeBody(t, resp, &body)
	assert.Equal(t, string(types.ErrCodeValidation), body.Code)

	resp = fx.do(t, http.MethodGet, "/v1/datasets/status", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_BearerAuthResolvesSubject(t *testing.T) {
	fx := setupAPI(t, true)
	ctx := context.Background()

	alice, err := cognee.EnsureUser(ctx, fx.app.Service.ACL().Store(), "alice@example.com")
	require.NoError(t, err)
	bob, err := cognee.EnsureUser(ctx, fx.app.Service.ACL().Store(), "bob@example.com")
	require.NoError(t, err)

	// No token at all.
	resp := fx.do(t, http.MethodPost, "/v1/add", "", addRequest{Dataset: "d", Items: []string{"x"}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Garbage token.
	resp = fx.do(t, http.MethodPost, "/v1/add", "not-a-jwt", addRequest{Dataset: "d", Items: []string{"x"}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Alice creates a dataset she owns.
	resp = fx.do(t, http.MethodPost, "/v1/add", signToken(t, alice.ID), addRequest{
		Dataset: "private",
		Items:   []string{"Alice keeps her notes here."},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var added cognee.AddResult
	decodeBody(t, resp, &added)

	// Bob cannot delete it.
	path := fmt.Sprintf("/v1/datasets/%s", added.Dataset.ID)
	resp = fx.do(t, http.MethodDelete, path, signToken(t, bob.ID), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	var body errorBody
	decodeBody(t, resp, &body)
	assert.Equal(t, string(types.ErrCodePermissionDenied), body.Code)

	// Alice can.
	resp = fx.do(t, http.MethodDelete, path, signToken(t, alice.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_PermissionEndpoints(t *testing.T) {
	fx := setupAPI(t, true)
	ctx := context.Background()
	store := fx.app.Service.ACL().Store()

	owner, err := cognee.EnsureUser(ctx, store, "owner@example.com")
	require.NoError(t, err)

	resp := fx.do(t, http.MethodPost, "/v1/permissions/tenants", signToken(t, owner.ID),
		createTenantRequest{Name: "acme"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tenant accesscontrol.Tenant
	decodeBody(t, resp, &tenant)
	assert.Equal(t, "acme", tenant.Name)

	resp = fx.do(t, http.MethodPost, "/v1/permissions/roles", signToken(t, owner.ID),
		createRoleRequest{Name: "analysts", TenantID: tenant.ID.String()})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var role accesscontrol.Role
	decodeBody(t, resp, &role)
	assert.Equal(t, tenant.ID, role.TenantID)

	member, err := store.CreateUser(ctx, "member@example.com", tenant.ID)
	require.NoError(t, err)

	resp = fx.do(t, http.MethodPost, "/v1/permissions/users/"+member.ID.String()+"/roles",
		signToken(t, owner.ID), assignRoleRequest{RoleID: role.ID.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Owner creates a dataset, then grants the role read over the API.
	resp = fx.do(t, http.MethodPost, "/v1/add", signToken(t, owner.ID), addRequest{
		Dataset: "shared",
		Items:   []string{"Shared team knowledge."},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var added cognee.AddResult
	decodeBody(t, resp, &added)

	resp = fx.do(t, http.MethodPost, "/v1/permissions/datasets/"+role.ID.String(),
		signToken(t, owner.ID), grantRequest{
			DatasetID:  added.Dataset.ID.String(),
			Permission: "read",
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Dataset names resolve within the owner's namespace, so the member
	// still gets a 404 by name. The grant itself is visible through the
	// resolved permission set.
	resp = fx.do(t, http.MethodGet, "/v1/datasets/status?dataset=shared&pipeline=add",
		signToken(t, member.ID), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	ok, err := store.HasPermission(ctx, member.ID, added.Dataset.ID, accesscontrol.PermissionRead)
	require.NoError(t, err)
	assert.True(t, ok)

	// A non-holder granting is refused.
	stranger, err := cognee.EnsureUser(ctx, store, "stranger@example.com")
	require.NoError(t, err)
	resp = fx.do(t, http.MethodPost, "/v1/permissions/datasets/"+stranger.ID.String(),
		signToken(t, stranger.ID), grantRequest{
			DatasetID:  added.Dataset.ID.String(),
			Permission: "read",
		})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_HealthNeedsNoAuth(t *testing.T) {
	fx := setupAPI(t, true)

	resp := fx.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
