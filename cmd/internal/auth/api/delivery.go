package authapi

import (
	"net/http"
	"strings"

	"authcore/cmd/internal/auth/session"
)

// ClientTypeHeader selects how refresh tokens travel.
const ClientTypeHeader = "x-client-type"

// Platform decides where tokens go in a response.
//
// Web keeps the refresh token in an HttpOnly cookie and never in the body.
// Mobile returns both tokens in the body and sets no cookie.
type Platform interface {
	Name() string
	Deliver(w http.ResponseWriter, tok session.Tokens) tokenBody
	Clear(w http.ResponseWriter)
}

type webPlatform struct{ h *Handler }

func (webPlatform) Name() string { return "web" }

func (p webPlatform) Deliver(w http.ResponseWriter, tok session.Tokens) tokenBody {
	p.h.setRefreshCookie(w, tok.RefreshToken, p.h.sessions.RefreshWindow())
	return tokenBody{AccessToken: tok.AccessToken}
}

func (p webPlatform) Clear(w http.ResponseWriter) { p.h.clearRefreshCookie(w) }

type mobilePlatform struct{}

func (mobilePlatform) Name() string { return "mobile" }

func (mobilePlatform) Deliver(_ http.ResponseWriter, tok session.Tokens) tokenBody {
	return tokenBody{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
}

func (mobilePlatform) Clear(http.ResponseWriter) {}

// parsePlatform maps the x-client-type header. ok is false for anything but
// "web" or "mobile".
func (h *Handler) parsePlatform(header string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "web":
		return webPlatform{h: h}, true
	case "mobile":
		return mobilePlatform{}, true
	default:
		return nil, false
	}
}

// platformFor is parsePlatform for endpoints where the header is optional.
// Without a usable header, a token presented through the refresh cookie keeps
// cookie delivery so the rotated token never lands in the body. Anything else
// gets body delivery.
func (h *Handler) platformFor(r *http.Request) Platform {
	if p, ok := h.parsePlatform(r.Header.Get(ClientTypeHeader)); ok {
		return p
	}
	if _, ok := h.refreshTokenFromCookie(r); ok {
		return webPlatform{h: h}
	}
	return mobilePlatform{}
}
