package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"authcore/cmd/identity"
	"authcore/cmd/internal/auth/session"
	"authcore/cmd/security/password"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Str0ng!Passw0rd"

type testEnv struct {
	ts       *httptest.Server
	users    *identity.MemoryStore
	sessions *session.MemoryStore
	pw       password.Config
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type testTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
}

func testPasswordConfig() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		users:    identity.NewMemoryStore(),
		sessions: session.NewMemoryStore(),
		pw:       testPasswordConfig(),
	}

	scfg := session.DefaultConfig()
	scfg.AccessTokenSecret = "access-secret-for-tests-0123456789"
	scfg.RefreshTokenSecret = "refresh-secret-for-tests-0123456789"
	scfg.RefreshTokenTTL = 24 * time.Hour

	svc, err := session.NewService(scfg, env.sessions, Principals(env.users), session.WithLogger(log))
	require.NoError(t, err)

	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	h, err := NewHandler(log, env.users, svc, env.pw, cfg)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux, "/api/v1")
	env.ts = httptest.NewServer(mux)
	t.Cleanup(env.ts.Close)
	return env
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func (e *testEnv) do(t *testing.T, path string, body any, clientType string, cookies ...*http.Cookie) (*http.Response, testEnvelope) {
	t.Helper()

	var rdr io.Reader = http.NoBody
	if body != nil {
		rdr = jsonBody(t, body)
	}
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+"/api/v1"+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if clientType != "" {
		req.Header.Set(ClientTypeHeader, clientType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	res, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	var env testEnvelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res, env
}

func (e *testEnv) register(t *testing.T, email string) {
	t.Helper()
	res, env := e.do(t, "/auth/register", registerRequest{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       email,
		PhoneNumber: "+1555" + strings.Repeat("0", 3) + email[:4],
		Password:    testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, res.StatusCode, env.Message)
}

func refreshCookie(res *http.Response) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	return nil
}

func decodeTokens(t *testing.T, env testEnvelope) testTokens {
	t.Helper()
	var tok testTokens
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	return tok
}

func TestRegister(t *testing.T) {
	e := newTestEnv(t)

	res, env := e.do(t, "/auth/register", registerRequest{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "Ada@Example.com",
		PhoneNumber: "+15550100000",
		Password:    testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.True(t, env.Success)
	require.Equal(t, "User registered successfully", env.Message)
	require.NotContains(t, string(env.Data), "$argon2id")
	require.NotContains(t, string(env.Data), "password")

	var u userView
	require.NoError(t, json.Unmarshal(env.Data, &u))
	require.Equal(t, "ada@example.com", u.Email)
	require.Equal(t, "user", u.Role)
	require.False(t, u.IsVerified)

	res, env = e.do(t, "/auth/register", registerRequest{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		PhoneNumber: "+15550100001",
		Password:    testPassword,
	}, "")
	require.Equal(t, http.StatusConflict, res.StatusCode)
	require.False(t, env.Success)
	require.Equal(t, "User already exists", env.Message)

	res, env = e.do(t, "/auth/register", registerRequest{Email: "x"}, "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Contains(t, env.Message, "First name is required, Last name is required")
}

func TestLogin_RequiresClientType(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "ada1@example.com")

	res, env := e.do(t, "/auth/login", loginRequest{Email: "ada1@example.com", Password: testPassword}, "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "Kindly provide the x-client-type", env.Message)

	res, _ = e.do(t, "/auth/login", loginRequest{Email: "ada1@example.com", Password: testPassword}, "desktop")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Empty(t, e.sessions.Sessions())
}

func TestLogin_Failures(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "ada2@example.com")

	res, env := e.do(t, "/auth/login", loginRequest{Email: "nobody@example.com", Password: testPassword}, "mobile")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Equal(t, "User not found", env.Message)

	res, env = e.do(t, "/auth/login", loginRequest{Email: "ada2@example.com", Password: "Wrong!Passw0rd"}, "mobile")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "Invalid credentials", env.Message)

	res, env = e.do(t, "/auth/login", loginRequest{Email: "bad", Password: ""}, "mobile")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "Valid email is required, Password is required", env.Message)

	require.Empty(t, e.sessions.Sessions())
}

func TestMobileFlow_LoginRefreshLogout(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "ada3@example.com")

	res, env := e.do(t, "/auth/login", loginRequest{Email: "ADA3@example.com", Password: testPassword}, "mobile")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Login successful", env.Message)
	require.Nil(t, refreshCookie(res))
	require.NotContains(t, string(env.Data), "$argon2id")

	t1 := decodeTokens(t, env)
	require.NotEmpty(t, t1.AccessToken)
	require.NotEmpty(t, t1.RefreshToken)
	require.Equal(t, "ada3@example.com", t1.Email)

	res, env = e.do(t, "/auth/refresh-token", tokenRequest{RefreshToken: t1.RefreshToken}, "mobile")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Token refreshed successfully", env.Message)
	t2 := decodeTokens(t, env)
	require.NotEmpty(t, t2.RefreshToken)
	require.NotEqual(t, t1.RefreshToken, t2.RefreshToken)

	// The rotated-away token is dead.
	res, env = e.do(t, "/auth/refresh-token", tokenRequest{RefreshToken: t1.RefreshToken}, "mobile")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "Invalid refresh token", env.Message)

	res, env = e.do(t, "/auth/logout", tokenRequest{RefreshToken: t2.RefreshToken}, "mobile")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Logged out successfully", env.Message)
	require.Empty(t, e.sessions.Sessions())

	// Idempotent.
	res, _ = e.do(t, "/auth/logout", tokenRequest{RefreshToken: t2.RefreshToken}, "mobile")
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = e.do(t, "/auth/refresh-token", tokenRequest{RefreshToken: t2.RefreshToken}, "mobile")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestWebFlow_CookieDelivery(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "ada4@example.com")

	res, env := e.do(t, "/auth/login", loginRequest{Email: "ada4@example.com", Password: testPassword}, "web")
	require.Equal(t, http.StatusOK, res.StatusCode)

	c1 := refreshCookie(res)
	require.NotNil(t, c1)
	require.True(t, c1.HttpOnly)
	require.True(t, c1.Secure)
	require.Equal(t, http.SameSiteStrictMode, c1.SameSite)
	require.Equal(t, "/", c1.Path)
	require.Equal(t, int((24 * time.Hour).Seconds()), c1.MaxAge)

	t1 := decodeTokens(t, env)
	require.NotEmpty(t, t1.AccessToken)
	require.Empty(t, t1.RefreshToken)
	require.NotContains(t, string(env.Data), c1.Value)

	res, env = e.do(t, "/auth/refresh-token", nil, "web", &http.Cookie{Name: c1.Name, Value: c1.Value})
	require.Equal(t, http.StatusOK, res.StatusCode)
	c2 := refreshCookie(res)
	require.NotNil(t, c2)
	require.NotEqual(t, c1.Value, c2.Value)
	require.Empty(t, decodeTokens(t, env).RefreshToken)

	res, _ = e.do(t, "/auth/refresh-token", nil, "web", &http.Cookie{Name: c1.Name, Value: c1.Value})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = e.do(t, "/auth/logout", nil, "web", &http.Cookie{Name: c2.Name, Value: c2.Value})
	require.Equal(t, http.StatusOK, res.StatusCode)
	cleared := refreshCookie(res)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.Less(t, cleared.MaxAge, 0)
	require.Empty(t, e.sessions.Sessions())
}

func TestRefresh_CookieWithoutClientTypeStaysInCookie(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "ada5@example.com")

	res, env := e.do(t, "/auth/login", loginRequest{Email: "ada5@example.com", Password: testPassword}, "web")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Empty(t, decodeTokens(t, env).RefreshToken)
	c := refreshCookie(res)
	require.NotNil(t, c)

	res, env = e.do(t, "/auth/refresh-token", nil, "", &http.Cookie{Name: c.Name, Value: c.Value})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Empty(t, decodeTokens(t, env).RefreshToken)
	rotated := refreshCookie(res)
	require.NotNil(t, rotated)
	require.NotEqual(t, c.Value, rotated.Value)

	res, _ = e.do(t, "/auth/logout", nil, "", &http.Cookie{Name: rotated.Name, Value: rotated.Value})
	require.Equal(t, http.StatusOK, res.StatusCode)
	cleared := refreshCookie(res)
	require.NotNil(t, cleared)
	require.Less(t, cleared.MaxAge, 0)
}

func TestRefresh_BodyWithoutClientTypeUsesBody(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "ada6@example.com")

	res, env := e.do(t, "/auth/login", loginRequest{Email: "ada6@example.com", Password: testPassword}, "mobile")
	require.Equal(t, http.StatusOK, res.StatusCode)
	rt := decodeTokens(t, env).RefreshToken
	require.NotEmpty(t, rt)

	res, env = e.do(t, "/auth/refresh-token", tokenRequest{RefreshToken: rt}, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Nil(t, refreshCookie(res))
	require.NotEmpty(t, decodeTokens(t, env).RefreshToken)
}

func TestRefreshAndLogout_MissingToken(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/auth/refresh-token", "/auth/logout"} {
		res, env := e.do(t, path, nil, "mobile")
		require.Equal(t, http.StatusBadRequest, res.StatusCode, path)
		require.Equal(t, "Refresh token is required", env.Message, path)

		res, _ = e.do(t, path, tokenRequest{RefreshToken: "  "}, "mobile")
		require.Equal(t, http.StatusBadRequest, res.StatusCode, path)
	}
}

func TestErrorDetail_OnlyWhenExposed(t *testing.T) {
	e := newTestEnv(t)
	res, env := e.do(t, "/auth/refresh-token", tokenRequest{RefreshToken: "garbage"}, "mobile")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.NotNil(t, env.Error)
	require.Equal(t, "unauthorized", env.Error.Code)
	require.Empty(t, env.Error.Detail)

	dev := newTestEnv(t, func(c *Config) { c.ExposeErrorDetail = true })
	_, env = dev.do(t, "/auth/refresh-token", tokenRequest{RefreshToken: "garbage"}, "mobile")
	require.NotEmpty(t, env.Error.Detail)
}

func TestLogin_RehashesLegacyBcrypt(t *testing.T) {
	e := newTestEnv(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := e.users.CreateUser(context.Background(), identity.CreateUserInput{
		FirstName:    "Grace",
		LastName:     "Hopper",
		Email:        "grace@example.com",
		PhoneNumber:  "+15550199999",
		PasswordHash: string(legacy),
	})
	require.NoError(t, err)

	res, _ := e.do(t, "/auth/login", loginRequest{Email: "grace@example.com", Password: testPassword}, "mobile")
	require.Equal(t, http.StatusOK, res.StatusCode)

	got, err := e.users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got.PasswordHash, "$argon2id$"))

	ok, err := e.pw.Verify(got.PasswordHash, testPassword)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	e := newTestEnv(t)
	res, err := e.ts.Client().Get(e.ts.URL + "/api/v1/auth/login")
	require.NoError(t, err)
	_ = res.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}
