package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhubapp/taskhub-api/internal/logging"
	"github.com/taskhubapp/taskhub-api/internal/ratelimit"
)

type testAPI struct {
	router *chi.Mux
	repo   *fakeUserRepo
	mail   *fakeEmailService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	svc, repo, mail := newTestService(t)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	logger := logging.NewLogger(true)
	handler := NewHandler(svc, ratelimit.NewLimiter(redisClient), logger)

	tokens, err := NewPasetoService(testTokenKey)
	require.NoError(t, err)
	mw := NewMiddleware(tokens)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/verify-otp", handler.VerifyOTP)
		r.Post("/resend-otp", handler.ResendOTP)
		r.Post("/login", handler.Login)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Get("/profile", handler.GetProfile)
			r.Put("/profile", handler.UpdateProfile)
		})
	})

	return &testAPI{router: r, repo: repo, mail: mail}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuthFlowEndToEnd(t *testing.T) {
	api := newTestAPI(t)

	// Register
	rec := api.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name":     "A",
		"email":    "a@x.com",
		"password": "pw123456",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	stored := api.repo.stored(t, "a@x.com")
	assert.False(t, stored.IsVerified)
	require.NotNil(t, stored.OTPHash)

	// Wrong code
	rec = api.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{
		"email": "a@x.com",
		"otp":   "000000",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_otp", decodeBody(t, rec)["code"])

	// Correct code
	rec = api.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{
		"email": "a@x.com",
		"otp":   api.mail.lastCode(t),
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
	userBody, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", userBody["email"])
	assert.NotContains(t, userBody, "password")

	// Login
	rec = api.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "pw123456",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	sessionToken, _ := decodeBody(t, rec)["token"].(string)
	require.NotEmpty(t, sessionToken)

	// Wrong password
	rec = api.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decodeBody(t, rec)["code"])

	// Unknown email looks identical to a wrong password
	rec = api.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "nobody@x.com",
		"password": "pw123456",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decodeBody(t, rec)["code"])

	// Profile with session token, never exposing the password hash
	rec = api.do(t, http.MethodGet, "/auth/profile", nil, sessionToken)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody(t, rec)
	assert.Equal(t, "a@x.com", profile["email"])
	assert.NotContains(t, rec.Body.String(), "password")

	// Profile update re-issues a token
	rec = api.do(t, http.MethodPut, "/auth/profile", map[string]string{
		"name": "A Better Name",
	}, sessionToken)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody(t, rec)
	assert.Equal(t, "A Better Name", updated["name"])
	assert.NotEmpty(t, updated["token"])

	// No token, no profile
	rec = api.do(t, http.MethodGet, "/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateEmailStatus(t *testing.T) {
	api := newTestAPI(t)

	payload := map[string]string{"name": "A", "email": "a@x.com", "password": "pw123456"}
	rec := api.do(t, http.MethodPost, "/auth/register", payload, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/register", payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email_already_exists", decodeBody(t, rec)["code"])
}

func TestVerifyOTPStatusCodes(t *testing.T) {
	api := newTestAPI(t)

	// Unknown user
	rec := api.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{
		"email": "nobody@x.com",
		"otp":   "123456",
	}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", decodeBody(t, rec)["code"])

	// Already verified
	rec = api.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "pw123456",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{
		"email": "a@x.com", "otp": api.mail.lastCode(t),
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{
		"email": "a@x.com", "otp": api.mail.lastCode(t),
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "already_verified", decodeBody(t, rec)["code"])
}

func TestLoginUnverifiedStatus(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "pw123456",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@x.com", "password": "pw123456",
	}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "email_not_verified", decodeBody(t, rec)["code"])
}

func TestResendOTPCooldown(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "pw123456",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/resend-otp", map[string]string{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Second resend inside the cooldown window is rejected
	rec = api.do(t, http.MethodPost, "/auth/resend-otp", map[string]string{"email": "a@x.com"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "cooldown_active", decodeBody(t, rec)["code"])
}

func TestUpdateProfileIncorrectPassword(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "pw123456",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{
		"email": "a@x.com", "otp": api.mail.lastCode(t),
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decodeBody(t, rec)["token"].(string)

	rec = api.do(t, http.MethodPut, "/auth/profile", map[string]string{
		"currentPassword": "wrong",
		"newPassword":     "brandnew1",
	}, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "incorrect_password", decodeBody(t, rec)["code"])
}
