// Package authapi exposes the session lifecycle over HTTP.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"authcore/cmd/identity"
	"authcore/cmd/internal/auth/autherr"
	"authcore/cmd/internal/auth/session"
	"authcore/cmd/security/password"
)

// Handler wires HTTP auth endpoints to the identity store and session service.
type Handler struct {
	log   *slog.Logger
	audit *slog.Logger
	cfg   Config

	users    identity.Store
	sessions *session.Service
	pw       password.Config

	now func() time.Time
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, users identity.Store, sessions *session.Service, pw password.Config, cfg Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if err := pw.Check(); err != nil {
		return nil, err
	}

	return &Handler{
		log:      log,
		audit:    log.WithGroup("audit"),
		cfg:      cfg.withDefaults(),
		users:    users,
		sessions: sessions,
		pw:       pw,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Principals adapts an identity store for the session service.
func Principals(users identity.Store) session.Principals {
	return session.PrincipalsFunc(func(ctx context.Context, id string) (session.Principal, error) {
		u, err := users.FindByID(ctx, id)
		if err != nil {
			return session.Principal{}, err
		}
		return session.Principal{ID: u.ID, Email: u.Email}, nil
	})
}

// Register wires auth routes under prefix (for example "/api/v1").
func (h *Handler) Register(mux *http.ServeMux, prefix string) {
	if h == nil || mux == nil {
		return
	}
	prefix = strings.TrimRight(prefix, "/")
	mux.HandleFunc("POST "+prefix+"/auth/register", h.handleRegister)
	mux.HandleFunc("POST "+prefix+"/auth/login", h.handleLogin)
	mux.HandleFunc("POST "+prefix+"/auth/refresh-token", h.handleRefresh)
	mux.HandleFunc("POST "+prefix+"/auth/logout", h.handleLogout)
	mux.Handle("GET "+prefix+"/auth/me", h.RequireAccessToken(http.HandlerFunc(h.handleMe)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "auth.Register"

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}
	if err := validateRegister(req, h.pw); err != nil {
		h.writeValidation(w, err)
		return
	}

	hash, err := h.pw.HashUnchecked(req.Password)
	if err != nil {
		h.writeErr(w, r, autherr.Infrastructure(op, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.StoreTimeout)
	defer cancel()

	u, err := h.users.CreateUser(ctx, identity.CreateUserInput{
		FirstName:    req.FirstName,
		MiddleName:   trimPtr(req.MiddleName),
		LastName:     req.LastName,
		Age:          req.Age,
		State:        trimPtr(req.State),
		Country:      trimPtr(req.Country),
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hash,
		Now:          h.now(),
	})
	if err != nil {
		h.writeErr(w, r, identityErr(op, err))
		return
	}

	h.auditRegister(r.Context(), u.ID, clientIP(r, h.cfg.TrustProxy))
	writeSuccess(w, http.StatusCreated, "User registered successfully", toUserView(u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "auth.Login"

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}
	if err := validateLogin(req); err != nil {
		h.writeValidation(w, err)
		return
	}

	platform, ok := h.parsePlatform(r.Header.Get(ClientTypeHeader))
	if !ok {
		writeFailure(w, http.StatusBadRequest, "missing_client_type", msgClientType, "")
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	u, err := h.findUser(r.Context(), req.Email)
	if err != nil {
		if identity.IsNotFound(err) {
			h.auditLoginFailed(r.Context(), "", ip, ua, "not_found")
		}
		h.writeErr(w, r, identityErr(op, err))
		return
	}

	okPw, err := h.pw.Verify(u.PasswordHash, req.Password)
	if err != nil {
		h.log.Warn("auth.login.hash.invalid", "user_id", u.ID, "err", err)
	}
	if !okPw {
		h.auditLoginFailed(r.Context(), u.ID, ip, ua, "bad_password")
		h.writeErr(w, r, autherr.Unauthorized(op, msgInvalidCreds))
		return
	}
	h.maybeRehash(r.Context(), u, req.Password)

	tok, err := h.sessions.Login(r.Context(), session.Principal{ID: u.ID, Email: u.Email}, provenance(ip, ua))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	body := platform.Deliver(w, tok)
	h.auditLoginSuccess(r.Context(), u.ID, tok.SessionID, ip, ua, platform.Name())
	writeSuccess(w, http.StatusOK, "Login successful", loginData{userView: toUserView(u), tokenBody: body})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw, err := h.presentedRefreshToken(w, r)
	if err != nil {
		h.writeBadBody(w, err)
		return
	}
	if raw == "" {
		writeFailure(w, http.StatusBadRequest, "validation_failed", msgRefreshToken, "")
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	tok, err := h.sessions.Refresh(r.Context(), raw)
	if err != nil {
		if errors.Is(err, autherr.ErrUnauthorized) {
			h.auditRefreshFailed(r.Context(), ip, err)
		}
		h.writeErr(w, r, err)
		return
	}

	platform := h.platformFor(r)
	body := platform.Deliver(w, tok)
	h.auditRefreshSuccess(r.Context(), tok.SessionID, ip, platform.Name())
	writeSuccess(w, http.StatusOK, "Token refreshed successfully", body)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, err := h.presentedRefreshToken(w, r)
	if err != nil {
		h.writeBadBody(w, err)
		return
	}
	if raw == "" {
		writeFailure(w, http.StatusBadRequest, "validation_failed", msgRefreshToken, "")
		return
	}

	if err := h.sessions.Logout(r.Context(), raw); err != nil {
		h.writeErr(w, r, err)
		return
	}

	platform := h.platformFor(r)
	platform.Clear(w)
	h.auditLogout(r.Context(), clientIP(r, h.cfg.TrustProxy), platform.Name())
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// ---- helpers ----

func (h *Handler) findUser(ctx context.Context, email string) (identity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
	defer cancel()
	return h.users.FindByEmail(ctx, email)
}

// maybeRehash upgrades legacy or weaker hashes after a successful login.
// Failures are logged and never block the login.
func (h *Handler) maybeRehash(ctx context.Context, u identity.User, plain string) {
	if !h.pw.NeedsRehash(u.PasswordHash) {
		return
	}
	hash, err := h.pw.HashUnchecked(plain)
	if err != nil {
		h.log.Warn("auth.login.rehash.fail", "user_id", u.ID, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
	defer cancel()
	if err := h.users.UpdatePasswordHash(ctx, u.ID, hash, h.now()); err != nil {
		h.log.Warn("auth.login.rehash.fail", "user_id", u.ID, "err", err)
	}
}

func provenance(ip net.IP, ua string) session.Provenance {
	p := session.Provenance{UserAgent: ua}
	if ip != nil {
		p.OriginAddress = ip.String()
	}
	return p
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
