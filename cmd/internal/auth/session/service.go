package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"authcore/cmd/internal/auth/autherr"
	"authcore/cmd/security/token"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MsgInvalidRefresh is the single client-facing message for every refresh
// rejection, so callers cannot tell which check failed.
const MsgInvalidRefresh = "Invalid refresh token"

// MsgTokenRequired is returned when refresh or logout gets no token.
const MsgTokenRequired = "Refresh token is required"

// Principal identifies who a session belongs to.
type Principal struct {
	ID    string
	Email string
}

// Principals resolves a principal by id at refresh time.
// A missing principal must return an error matching autherr.ErrNotFound.
type Principals interface {
	FindPrincipal(ctx context.Context, id string) (Principal, error)
}

// PrincipalsFunc adapts a function to Principals.
type PrincipalsFunc func(ctx context.Context, id string) (Principal, error)

func (f PrincipalsFunc) FindPrincipal(ctx context.Context, id string) (Principal, error) {
	return f(ctx, id)
}

// Tokens is the result of a login or refresh.
type Tokens struct {
	SessionID        string
	PrincipalID      string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Service implements Login, Refresh and Logout.
type Service struct {
	codec      *Codec
	fp         token.Fingerprinter
	store      Store
	principals Principals
	timeout    time.Duration

	now     func() time.Time
	metrics *Metrics
	log     *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for token issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

const tracerName = "authcore/session"

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTracerProvider sets where session spans are recorded (default the
// global provider).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewService constructs a Service. principals may be nil, in which case the
// email embedded in the refresh token is carried forward on rotation.
func NewService(cfg Config, store Store, principals Principals, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fp, err := token.NewFingerprinter(cfg.FingerprintKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	s := &Service{
		fp:         fp,
		store:      store,
		principals: principals,
		timeout:    cfg.StoreTimeout,
		now:        func() time.Time { return time.Now().UTC() },
		log:        slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.codec, err = NewCodec(cfg, WithCodecClock(s.now))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Codec exposes the token codec (access token verification for callers).
func (s *Service) Codec() *Codec { return s.codec }

// RefreshWindow is the lifetime of refresh tokens and sessions.
func (s *Service) RefreshWindow() time.Duration { return s.codec.RefreshWindow() }

// Login opens a new session for p and returns fresh tokens.
func (s *Service) Login(ctx context.Context, p Principal, prov Provenance) (Tokens, error) {
	const op = "session.Login"

	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if strings.TrimSpace(p.ID) == "" {
		return Tokens{}, s.fail(span, "login", "invalid", autherr.Client(op, "principal is required"))
	}

	now := s.now()
	tok, err := s.issue(p)
	if err != nil {
		return Tokens{}, s.fail(span, "login", "error", autherr.Infrastructure(op, err))
	}

	var sess Session
	err = s.call(ctx, "create", func(ctx context.Context) error {
		var err error
		sess, err = s.store.Create(ctx, NewSession{
			PrincipalID: p.ID,
			Fingerprint: s.fp.Fingerprint(tok.RefreshToken),
			Provenance:  prov,
			ExpiresAt:   now.Add(s.codec.RefreshWindow()),
			Now:         now,
		})
		return err
	})
	if err != nil {
		s.log.Error("auth.login.store.fail", "principal_id", p.ID, "err", err)
		return Tokens{}, s.fail(span, "login", "error", autherr.Infrastructure(op, err))
	}

	tok.SessionID = sess.ID
	tok.RefreshExpiresAt = sess.ExpiresAt
	s.ok(span, "login", sess.ID)
	return tok, nil
}

// Refresh validates a presented refresh token, rotates its session and
// returns new tokens. The presented token is unusable afterwards.
func (s *Service) Refresh(ctx context.Context, raw string) (Tokens, error) {
	const op = "session.Refresh"

	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Tokens{}, s.fail(span, "refresh", "invalid", autherr.Client(op, MsgTokenRequired))
	}

	claims, err := s.codec.Verify(raw, RefreshToken)
	if err != nil {
		return Tokens{}, s.reject(span, op, "token", err)
	}

	oldFP := s.fp.Fingerprint(raw)
	var sess Session
	err = s.call(ctx, "find", func(ctx context.Context) error {
		var err error
		sess, err = s.store.FindByFingerprint(ctx, oldFP)
		return err
	})
	if errors.Is(err, ErrSessionNotFound) {
		return Tokens{}, s.reject(span, op, "not_found", err)
	}
	if err != nil {
		return Tokens{}, s.infra(span, op, "refresh", err)
	}

	now := s.now()
	if !sess.Active(now) {
		return Tokens{}, s.reject(span, op, "expired", ErrTokenExpired)
	}
	if sess.PrincipalID != claims.ID {
		return Tokens{}, s.reject(span, op, "principal_mismatch", ErrInvalidSignature)
	}

	p := Principal{ID: claims.ID, Email: claims.Email}
	if s.principals != nil {
		err = s.call(ctx, "principal", func(ctx context.Context) error {
			var err error
			p, err = s.principals.FindPrincipal(ctx, sess.PrincipalID)
			return err
		})
		if errors.Is(err, autherr.ErrNotFound) {
			return Tokens{}, s.reject(span, op, "principal_missing", err)
		}
		if err != nil {
			return Tokens{}, s.infra(span, op, "refresh", err)
		}
	}

	tok, err := s.issue(p)
	if err != nil {
		return Tokens{}, s.infra(span, op, "refresh", err)
	}

	err = s.call(ctx, "rotate", func(ctx context.Context) error {
		var err error
		sess, err = s.store.Rotate(ctx, sess.ID, oldFP, s.fp.Fingerprint(tok.RefreshToken), now.Add(s.codec.RefreshWindow()), now)
		return err
	})
	switch {
	case errors.Is(err, ErrRotateConflict), errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrDuplicateFingerprint):
		return Tokens{}, s.reject(span, op, "rotate_conflict", err)
	case err != nil:
		return Tokens{}, s.infra(span, op, "refresh", err)
	}

	tok.SessionID = sess.ID
	tok.RefreshExpiresAt = sess.ExpiresAt
	s.ok(span, "refresh", sess.ID)
	return tok, nil
}

// Logout deletes the session bound to raw. It succeeds whether or not a
// session existed.
func (s *Service) Logout(ctx context.Context, raw string) error {
	const op = "session.Logout"

	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.fail(span, "logout", "invalid", autherr.Client(op, MsgTokenRequired))
	}

	var deleted bool
	err := s.call(ctx, "delete", func(ctx context.Context) error {
		var err error
		deleted, err = s.store.DeleteByFingerprint(ctx, s.fp.Fingerprint(raw))
		return err
	})
	if err != nil {
		return s.infra(span, op, "logout", err)
	}

	outcome := "ok"
	if !deleted {
		outcome = "noop"
	}
	s.metrics.op("logout", outcome)
	span.SetAttributes(attribute.Bool("session.deleted", deleted))
	return nil
}

func (s *Service) issue(p Principal) (Tokens, error) {
	access, accessExp, err := s.codec.IssueAccessToken(p.ID, p.Email)
	if err != nil {
		return Tokens{}, err
	}
	refresh, refreshExp, err := s.codec.IssueRefreshToken(p.ID, p.Email)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		PrincipalID:      p.ID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// call runs fn under the store timeout. A deadline hit is folded into the
// returned error so it is classified as retryable.
func (s *Service) call(ctx context.Context, name string, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(cctx)
	s.metrics.store(name, time.Since(start))

	if err != nil && cctx.Err() != nil && !errors.Is(err, cctx.Err()) {
		err = fmt.Errorf("%w: %w", cctx.Err(), err)
	}
	return err
}

func (s *Service) reject(span trace.Span, op, reason string, err error) error {
	s.log.Info("auth.refresh.rejected", "reason", reason)
	return s.fail(span, "refresh", "rejected", &autherr.Error{
		Op:   op,
		Kind: autherr.ErrUnauthorized,
		Msg:  MsgInvalidRefresh,
		Err:  err,
	})
}

func (s *Service) infra(span trace.Span, op, name string, err error) error {
	s.log.Error("auth."+name+".store.fail", "err", err)
	return s.fail(span, name, "error", autherr.Infrastructure(op, err))
}

func (s *Service) fail(span trace.Span, name, outcome string, err error) error {
	s.metrics.op(name, outcome)
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	return err
}

func (s *Service) ok(span trace.Span, name, sessionID string) {
	s.metrics.op(name, "ok")
	span.SetAttributes(attribute.String("session.id", sessionID))
}
