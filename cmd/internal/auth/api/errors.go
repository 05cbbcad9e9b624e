package authapi

import (
	"errors"
	"net/http"

	"authcore/cmd/identity"
	"authcore/cmd/internal/auth/autherr"
)

// statusFor maps an error kind to its HTTP status and stable error code.
func statusFor(err error) (int, string) {
	switch autherr.KindOf(err) {
	case autherr.ErrClient:
		return http.StatusBadRequest, "bad_request"
	case autherr.ErrUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case autherr.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case autherr.ErrConflict:
		return http.StatusConflict, "conflict"
	}
	if autherr.IsRetryable(err) {
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "server_error"
}

func defaultMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return msgUnavailable
	case http.StatusInternalServerError:
		return msgInternalError
	default:
		return http.StatusText(status)
	}
}

// writeErr renders err as an error envelope. Infrastructure failures are
// logged and returned generically.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := autherr.Message(err, defaultMessage(status))
	if status >= http.StatusInternalServerError {
		msg = defaultMessage(status)
		h.log.ErrorContext(r.Context(), "auth.request.fail",
			"path", r.URL.Path,
			"status", status,
			"err", err,
		)
	}
	writeFailure(w, status, code, msg, h.detail(err))
}

func (h *Handler) writeValidation(w http.ResponseWriter, err error) {
	writeFailure(w, http.StatusBadRequest, "validation_failed", err.Error(), "")
}

func (h *Handler) writeBadBody(w http.ResponseWriter, err error) {
	writeFailure(w, http.StatusBadRequest, "invalid_json", msgInvalidBody, h.detail(err))
}

func (h *Handler) detail(err error) string {
	if err == nil || !h.cfg.ExposeErrorDetail {
		return ""
	}
	return err.Error()
}

// identityErr classifies principal store failures.
func identityErr(op string, err error) error {
	switch {
	case identity.IsConflict(err):
		return autherr.Conflict(op, msgUserExists)
	case identity.IsNotFound(err):
		return autherr.NotFound(op, msgUserNotFound)
	case identity.IsInvalidInput(err):
		return &autherr.Error{Op: op, Kind: autherr.ErrClient, Msg: msgInvalidBody, Err: err}
	case errors.Is(err, autherr.ErrInfrastructure):
		return err
	default:
		return autherr.Infrastructure(op, err)
	}
}
