package api

import (
	"context"
	"encoding/json"
	"hackathon_portal/internal/app/ratelimit"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/common/security"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/platform/mail"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal in-memory repositories, enough for the sign-in flows.

type memOtps struct{ m map[string]*model.Otp }

func (r *memOtps) Upsert(_ context.Context, o *model.Otp) error {
	cp := *o
	r.m[o.Email+string(o.Purpose)] = &cp
	return nil
}

func (r *memOtps) Find(_ context.Context, email string, p model.OtpPurpose) (*model.Otp, error) {
	if o, ok := r.m[email+string(p)]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r *memOtps) each(id string, fn func(key string, o *model.Otp)) {
	for k, o := range r.m {
		if o.ID == id {
			fn(k, o)
		}
	}
}

func (r *memOtps) MarkVerified(_ context.Context, id string) error {
	marked := false
	r.each(id, func(_ string, o *model.Otp) {
		if !o.Verified {
			o.Verified, marked = true, true
		}
	})
	if !marked {
		return common.ErrNotFound
	}
	return nil
}

func (r *memOtps) IncrementAttempts(_ context.Context, id string) (int, error) {
	n := 0
	r.each(id, func(_ string, o *model.Otp) { o.Attempts++; n = o.Attempts })
	return n, nil
}

func (r *memOtps) Delete(_ context.Context, id string) error {
	r.each(id, func(k string, _ *model.Otp) { delete(r.m, k) })
	return nil
}

func (r *memOtps) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

type memUsers struct{ m map[string]*model.User }

func (r *memUsers) UpsertVerified(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.m {
		if u.Email == email {
			return u, nil
		}
	}
	u := &model.User{ID: uuid.NewString(), Email: email, EmailVerified: true}
	r.m[u.ID] = u
	return u, nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.m {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := r.m[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

// noTeams is a team repository with no teams in it.
type noTeams struct{}

func (noTeams) Create(context.Context, *sqlx.Tx, *model.Team) error { return nil }
func (noTeams) FindByID(context.Context, string) (*model.Team, error) { return nil, common.ErrNotFound }
func (noTeams) FindForUser(context.Context, string, string) (*model.Team, error) {
	return nil, common.ErrNotFound
}
func (noTeams) IsEmailRegistered(context.Context, string) (bool, error) { return false, nil }
func (noTeams) List(context.Context, model.TeamFilter) ([]model.TeamSummary, int, error) {
	return nil, 0, nil
}
func (noTeams) UpdateStatus(context.Context, string, model.TeamStatus, model.TeamStatus, string, *string, time.Time) error {
	return common.ErrNotFound
}
func (noTeams) SoftDelete(context.Context, string, time.Time) error { return common.ErrNotFound }
func (noTeams) Stats(context.Context) (*model.TeamStats, error) { return &model.TeamStats{}, nil }
func (noTeams) ExportRows(context.Context, model.TeamFilter) ([]model.ExportRow, error) {
	return nil, nil
}

type memAdmins struct{ m map[string]*model.Admin }

func (r *memAdmins) Create(_ context.Context, a *model.Admin) error {
	r.m[a.ID] = a
	return nil
}

func (r *memAdmins) FindByEmail(_ context.Context, email string) (*model.Admin, error) {
	for _, a := range r.m {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memAdmins) FindByID(_ context.Context, id string) (*model.Admin, error) {
	if a, ok := r.m[id]; ok {
		return a, nil
	}
	return nil, common.ErrNotFound
}

func (r *memAdmins) List(context.Context) ([]model.Admin, error) { return nil, nil }
func (r *memAdmins) RecordLogin(context.Context, string, string, time.Time) error { return nil }

type memAdminSessions struct{ m map[string]*model.AdminSession }

func (r *memAdminSessions) Create(_ context.Context, s *model.AdminSession) error {
	r.m[s.TokenHash] = s
	return nil
}

func (r *memAdminSessions) FindByTokenHash(_ context.Context, h string) (*model.AdminSession, error) {
	if s, ok := r.m[h]; ok {
		return s, nil
	}
	return nil, common.ErrNotFound
}

func (r *memAdminSessions) DeleteByTokenHash(_ context.Context, h string) (int64, error) {
	delete(r.m, h)
	return 1, nil
}

func (r *memAdminSessions) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

type outbox struct{ sent []mail.Message }

func (o *outbox) Dispatch(_ context.Context, msg mail.Message) error {
	o.sent = append(o.sent, msg)
	return nil
}

type testServer struct {
	handler http.Handler
	outbox  *outbox
	admins  *memAdmins
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	security.InitJWT([]byte("router-test-secret"))

	ts := &testServer{outbox: &outbox{}, admins: &memAdmins{m: map[string]*model.Admin{}}}
	limiter := ratelimit.NewMemoryLimiter()
	otp := service.NewOtpService(&memOtps{m: map[string]*model.Otp{}}, &memUsers{m: map[string]*model.User{}}, noTeams{},
		limiter, ts.outbox, 10*time.Minute, service.OtpLimits{IPLimit: 50, IPWindow: time.Hour, EmailLimit: 50, EmailWindow: time.Hour})
	adminAuth := service.NewAdminAuthService(ts.admins, &memAdminSessions{m: map[string]*model.AdminSession{}},
		limiter, time.Hour, 50, time.Hour)

	for _, a := range []struct {
		email string
		role  model.AdminRole
	}{{"root@example.com", model.RoleSuperAdmin}, {"judge@example.com", model.RoleJudge}} {
		hash, err := security.HashPassword("s3cret-pass")
		require.NoError(t, err)
		ts.admins.m[a.email] = &model.Admin{ID: a.email, Email: a.email, Name: "Test", PasswordHash: hash, Role: a.role, Active: true}
	}

	sessions := NewSessionManager(memstore.New(), time.Hour, false)
	ts.handler = NewRouter(Services{Otp: otp, AdminAuth: adminAuth}, sessions, Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		BaseURL:        "http://localhost:8080",
		ExportLinkTTL:  time.Minute,
		MaxUploadBytes: 1 << 20,
	})
	return ts
}

func (ts *testServer) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealthAndNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"NOT_FOUND","message":"Route not found"}`, rec.Body.String())
}

func TestAdminLoginErrorsAreIdentical(t *testing.T) {
	ts := newTestServer(t)

	unknown := ts.do(http.MethodPost, "/api/admin/login", `{"email":"ghost@example.com","password":"s3cret-pass"}`)
	wrong := ts.do(http.MethodPost, "/api/admin/login", `{"email":"root@example.com","password":"guess"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.Bytes(), wrong.Body.Bytes())
	assert.Nil(t, findCookie(wrong, "admin_token"))
}

func TestAdminCookieSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/admin/login", `{"email":"root@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, "admin_token")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.NotContains(t, rec.Body.String(), cookie.Value)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(http.MethodGet, "/api/admin/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Data struct {
			Admin       model.Admin        `json:"admin"`
			Permissions []model.Permission `json:"permissions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "root@example.com", me.Data.Admin.Email)
	assert.Contains(t, me.Data.Permissions, model.PermManageAdmins)

	rec = ts.do(http.MethodPost, "/api/admin/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := findCookie(rec, "admin_token")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)

	rec = ts.do(http.MethodGet, "/api/admin/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesEnforceRoles(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/admin/admins", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/admin/login", `{"email":"judge@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	judgeCookie := findCookie(rec, "admin_token")
	require.NotNil(t, judgeCookie)

	rec = ts.do(http.MethodGet, "/api/admin/admins", "", judgeCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/admin/teams/some-id", "", judgeCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParticipantOtpSignIn(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/send-otp", `{"email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "50", rec.Header().Get("X-RateLimit-Limit"))
	require.Len(t, ts.outbox.sent, 1)
	code := regexp.MustCompile(`\b[0-9]{6}\b`).FindString(ts.outbox.sent[0].Body)
	require.NotEmpty(t, code)
	assert.NotContains(t, rec.Body.String(), code)

	rec = ts.do(http.MethodPost, "/api/auth/verify-otp", `{"email":"ada@example.com","code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	session := findCookie(rec, "session_token")
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.NotContains(t, rec.Body.String(), session.Value)

	rec = ts.do(http.MethodGet, "/api/auth/me", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)

	// The code was consumed.
	rec = ts.do(http.MethodPost, "/api/auth/verify-otp", `{"email":"ada@example.com","code":"`+code+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"OTP_NOT_FOUND"`)
}

func TestMalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/auth/send-otp", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"VALIDATION_ERROR"`)
}

func TestCSRFOnRouter(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/send-otp", strings.NewReader(`{"email":"ada@example.com"}`))
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.outbox.sent)
}

func TestMalformedTeamIDIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	login := func(email string) *http.Cookie {
		rec := ts.do(http.MethodPost, "/api/admin/login", `{"email":"`+email+`","password":"s3cret-pass"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		c := findCookie(rec, "admin_token")
		require.NotNil(t, c)
		return c
	}
	root := login("root@example.com")
	judge := login("judge@example.com")

	cases := []struct {
		method, path, body string
		cookie             *http.Cookie
	}{
		{http.MethodGet, "/api/admin/teams/abc", "", root},
		{http.MethodPatch, "/api/admin/teams/abc/status", `{"status":"APPROVED"}`, root},
		{http.MethodDelete, "/api/admin/teams/abc", "", root},
		{http.MethodGet, "/api/judge/teams/abc", "", judge},
		{http.MethodPost, "/api/judge/teams/abc/scores", `{"scores":[]}`, judge},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := ts.do(tc.method, tc.path, tc.body, tc.cookie)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"NOT_FOUND"`)
			assert.NotContains(t, rec.Body.String(), "details")
		})
	}
}
