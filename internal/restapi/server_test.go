package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Embucket/embucket-sub001/internal/config"
	"github.com/Embucket/embucket-sub001/internal/embucketlog"
	"github.com/Embucket/embucket-sub001/internal/executor"
	"github.com/Embucket/embucket-sub001/internal/registry"
	"github.com/Embucket/embucket-sub001/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := embucketlog.New(embucketlog.LevelError)

	eng, err := executor.NewEngine(executor.EngineConfig{
		MemPoolType:   executor.MemPoolFair,
		MemPoolSizeMB: 256,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	sessions := session.NewStore(60)
	reg := registry.New()
	exec := executor.New(executor.Config{
		MaxConcurrencyLevel: 4,
		QueryTimeoutSecs:    30,
		MemPool:             executor.MemPoolFair,
		MemPoolSizeMB:       256,
	}, eng, sessions, reg, log)

	cfg := &config.Config{
		AuthDemoUser:     "embucket",
		AuthDemoPassword: "embucket",
		JWTSecret:        "test-signing-secret-value-0123456789",
		DataFormat:       "json",
	}

	return NewServer(cfg, sessions, exec, log)
}

func doJSON(t *testing.T, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/session/v1/login-request",
		`{"data":{"LOGIN_NAME":"wrong","PASSWORD":"wrong"}}`, nil)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
}

func TestLoginThenQuerySucceeds(t *testing.T) {
	srv := newTestServer(t)

	loginRec := doJSON(t, srv, http.MethodPost, "/session/v1/login-request",
		`{"data":{"LOGIN_NAME":"embucket","PASSWORD":"embucket"}}`, nil)
	var loginEnv Envelope
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &loginEnv))
	require.True(t, loginEnv.Success)
	require.NotNil(t, loginEnv.Data)
	token := loginEnv.Data.Token
	require.NotEmpty(t, token)

	queryRec := doJSON(t, srv, http.MethodPost, "/queries/v1/query-request?requestId=r1",
		`{"sqlText":"SELECT 1","asyncExec":false}`,
		map[string]string{"Authorization": `Snowflake Token="` + token + `"`})

	require.Equal(t, http.StatusOK, queryRec.Code)
	var queryEnv Envelope
	require.NoError(t, json.Unmarshal(queryRec.Body.Bytes(), &queryEnv))
	assert.True(t, queryEnv.Success)
	require.NotNil(t, queryEnv.Data)
}

func TestQueryWithoutAuthIsRejected(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/queries/v1/query-request?requestId=r1",
		`{"sqlText":"SELECT 1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAbortAlwaysReturnsSuccessNull(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/queries/v1/abort-request",
		`{"sqlText":"select 1","requestId":"unknown-request"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Data)
}

func TestSessionCookieIsSetWhenMissing(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/session", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "expected a session_id cookie to be set")
}
