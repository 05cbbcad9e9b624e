package authapi

import (
	"context"
	"net/http"
	"strings"

	"authcore/cmd/internal/auth/session"
)

const (
	msgUnauthorized = "Unauthorized"
	msgTokenInvalid = "Token is invalid or expired"
)

type claimsKey struct{}

// ClaimsFromContext returns the access-token claims set by RequireAccessToken.
func ClaimsFromContext(ctx context.Context) (session.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(session.Claims)
	return c, ok
}

// RequireAccessToken admits requests carrying a valid "Authorization: Bearer"
// access token. Refresh tokens are rejected because they are signed with a
// different secret.
func (h *Handler) RequireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeFailure(w, http.StatusUnauthorized, "unauthorized", msgUnauthorized, "")
			return
		}
		claims, err := h.sessions.Codec().Verify(raw, session.AccessToken)
		if err != nil {
			h.log.DebugContext(r.Context(), "auth.access.reject", "path", r.URL.Path, "err", err)
			writeFailure(w, http.StatusUnauthorized, "invalid_token", msgTokenInvalid, "")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// handleMe returns the principal behind the access token.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	const op = "auth.Me"

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", msgUnauthorized, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.StoreTimeout)
	defer cancel()
	u, err := h.users.FindByID(ctx, claims.ID)
	if err != nil {
		h.writeErr(w, r, identityErr(op, err))
		return
	}
	writeSuccess(w, http.StatusOK, "User fetched successfully", toUserView(u))
}
