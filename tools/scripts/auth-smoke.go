// Package main is a CI-friendly smoke test for the authcore HTTP API.
//
// It runs, against a live server:
//   - register (409 tolerated on reruns)
//   - mobile login, refresh, replay of the old token (401), logout, logout again
//   - web login and refresh through the refresh cookie
//
// Against a plain http URL the server needs AUTH_COOKIE_SECURE=false, or the
// cookie jar will not send the refresh cookie back.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type smoke struct {
	base    string
	client  *http.Client
	verbose bool
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:2000/api/v1", "API base URL")
		email    = flag.String("email", "", "Account email (default: generated)")
		password = flag.String("password", "Sm0ke!Passw0rd", "Account password")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	u, err := url.Parse(*baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fatalf("invalid -url: %q", *baseURL)
	}

	stamp := time.Now().UnixNano()
	if *email == "" {
		*email = fmt.Sprintf("smoke+%d@example.com", stamp)
	}

	jar, _ := cookiejar.New(nil)
	s := &smoke{
		base:    strings.TrimRight(*baseURL, "/"),
		client:  &http.Client{Timeout: *timeout, Jar: jar},
		verbose: *verbose,
	}

	status, _ := s.post("/auth/register", "", map[string]any{
		"firstName":   "Smoke",
		"lastName":    "Test",
		"email":       *email,
		"password":    *password,
		"phoneNumber": fmt.Sprintf("+1555%07d", stamp%10_000_000),
	})
	if status != http.StatusCreated && status != http.StatusConflict {
		fatalf("register: status %d", status)
	}

	creds := map[string]string{"email": *email, "password": *password}

	// mobile
	login := s.mustTokens("/auth/login", "mobile", creds, http.StatusOK)
	if login.RefreshToken == "" {
		fatalf("mobile login: no refresh token in body")
	}
	rotated := s.mustTokens("/auth/refresh-token", "mobile", map[string]string{"refreshToken": login.RefreshToken}, http.StatusOK)
	if rotated.RefreshToken == "" || rotated.RefreshToken == login.RefreshToken {
		fatalf("mobile refresh: token not rotated")
	}
	s.expect("/auth/refresh-token", "mobile", map[string]string{"refreshToken": login.RefreshToken}, http.StatusUnauthorized)
	s.expect("/auth/logout", "mobile", map[string]string{"refreshToken": rotated.RefreshToken}, http.StatusOK)
	s.expect("/auth/logout", "mobile", map[string]string{"refreshToken": rotated.RefreshToken}, http.StatusOK)

	// web
	web := s.mustTokens("/auth/login", "web", creds, http.StatusOK)
	if web.RefreshToken != "" {
		fatalf("web login: refresh token leaked into body")
	}
	s.mustTokens("/auth/refresh-token", "web", nil, http.StatusOK)
	s.expect("/auth/logout", "web", nil, http.StatusOK)

	fmt.Printf("OK: email=%s\n", *email)
}

func (s *smoke) post(path, clientType string, body any) (int, envelope) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("marshal %s: %v", path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(http.MethodPost, s.base+path, rdr)
	if err != nil {
		fatalf("request %s: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if clientType != "" {
		req.Header.Set("x-client-type", clientType)
	}

	res, err := s.client.Do(req)
	if err != nil {
		fatalf("POST %s: %v", path, err)
	}
	defer res.Body.Close()

	var env envelope
	_ = json.NewDecoder(res.Body).Decode(&env)
	if s.verbose {
		fmt.Printf("POST %s [%s] -> %d %q\n", path, clientType, res.StatusCode, env.Message)
	}
	return res.StatusCode, env
}

func (s *smoke) expect(path, clientType string, body any, want int) envelope {
	status, env := s.post(path, clientType, body)
	if status != want {
		fatalf("%s (%s): status %d want %d: %s", path, clientType, status, want, env.Message)
	}
	return env
}

func (s *smoke) mustTokens(path, clientType string, body any, want int) tokens {
	env := s.expect(path, clientType, body, want)
	var t tokens
	if err := json.Unmarshal(env.Data, &t); err != nil {
		fatalf("%s: decode data: %v", path, err)
	}
	if t.AccessToken == "" {
		fatalf("%s: missing access token", path)
	}
	return t
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
