package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"authcore/cmd/identity/ids"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis.
//
// Layout (all keys share the "{prefix}" hash tag so scripts stay single-slot):
//
//	{prefix}:session:<id>  hash  principal_id fingerprint user_agent origin expires_at created_at updated_at
//	{prefix}:fp:<fp>       string session id
//
// Times are stored as unix milliseconds. Both keys carry a TTL at expires_at,
// so expired sessions disappear on their own and DeleteExpired is a no-op.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore. An empty prefix defaults to "authcore".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "authcore"
	}
	return &RedisStore{rdb: rdb, prefix: "{" + prefix + "}"}
}

func (s *RedisStore) sessionKey(id string) string { return s.prefix + ":session:" + id }
func (s *RedisStore) fpKey(fp string) string      { return s.prefix + ":fp:" + fp }

// KEYS: session, fp. ARGV: id principal fp ua origin expires_ms now_ms ttl_ms
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'principal_id', ARGV[2],
  'fingerprint', ARGV[3],
  'user_agent', ARGV[4],
  'origin', ARGV[5],
  'expires_at', ARGV[6],
  'created_at', ARGV[7],
  'updated_at', ARGV[7])
redis.call('PEXPIRE', KEYS[1], ARGV[8])
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[8])
return 1
`)

// KEYS: session, old fp, new fp. ARGV: old_fp new_fp expires_ms now_ms ttl_ms id
// Returns 0 missing, 2 fingerprint mismatch, 3 new fingerprint taken, 1 ok.
var rotateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if redis.call('HGET', KEYS[1], 'fingerprint') ~= ARGV[1] then
  return 2
end
if redis.call('EXISTS', KEYS[3]) == 1 then
  return 3
end
redis.call('DEL', KEYS[2])
redis.call('HSET', KEYS[1],
  'fingerprint', ARGV[2],
  'expires_at', ARGV[3],
  'updated_at', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
redis.call('SET', KEYS[3], ARGV[6], 'PX', ARGV[5])
return 1
`)

// KEYS: fp. ARGV: session key prefix, fp
var deleteScript = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return 0
end
redis.call('DEL', KEYS[1])
local sk = ARGV[1] .. id
if redis.call('HGET', sk, 'fingerprint') == ARGV[2] then
  redis.call('DEL', sk)
end
return 1
`)

func (s *RedisStore) Create(ctx context.Context, in NewSession) (Session, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.New(now)
	if err != nil {
		return Session{}, err
	}

	res, err := createScript.Run(ctx, s.rdb,
		[]string{s.sessionKey(id), s.fpKey(in.Fingerprint)},
		id, in.PrincipalID, in.Fingerprint,
		in.Provenance.UserAgent, in.Provenance.OriginAddress,
		in.ExpiresAt.UnixMilli(), now.UnixMilli(), ttlMillis(in.ExpiresAt, now),
	).Int64()
	if err != nil {
		return Session{}, fmt.Errorf("redis create session: %w", err)
	}
	if res == 0 {
		return Session{}, ErrDuplicateFingerprint
	}

	return Session{
		ID:          id,
		PrincipalID: in.PrincipalID,
		Fingerprint: in.Fingerprint,
		Provenance:  in.Provenance,
		ExpiresAt:   time.UnixMilli(in.ExpiresAt.UnixMilli()).UTC(),
		CreatedAt:   time.UnixMilli(now.UnixMilli()).UTC(),
		UpdatedAt:   time.UnixMilli(now.UnixMilli()).UTC(),
	}, nil
}

func (s *RedisStore) FindByFingerprint(ctx context.Context, fp string) (Session, error) {
	id, err := s.rdb.Get(ctx, s.fpKey(fp)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get fingerprint: %w", err)
	}

	sess, err := s.load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	// The index can briefly outlive a rotated hash; never trust it alone.
	if sess.Fingerprint != fp {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *RedisStore) Rotate(ctx context.Context, id, oldFP, newFP string, expiresAt, now time.Time) (Session, error) {
	res, err := rotateScript.Run(ctx, s.rdb,
		[]string{s.sessionKey(id), s.fpKey(oldFP), s.fpKey(newFP)},
		oldFP, newFP, expiresAt.UnixMilli(), now.UnixMilli(), ttlMillis(expiresAt, now), id,
	).Int64()
	if err != nil {
		return Session{}, fmt.Errorf("redis rotate session: %w", err)
	}

	switch res {
	case 0:
		return Session{}, ErrSessionNotFound
	case 2:
		return Session{}, ErrRotateConflict
	case 3:
		return Session{}, ErrDuplicateFingerprint
	}
	return s.load(ctx, id)
}

func (s *RedisStore) DeleteByFingerprint(ctx context.Context, fp string) (bool, error) {
	res, err := deleteScript.Run(ctx, s.rdb,
		[]string{s.fpKey(fp)},
		s.prefix+":session:", fp,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis delete session: %w", err)
	}
	return res == 1, nil
}

// DeleteExpired is a no-op: key TTLs purge expired sessions.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisStore) load(ctx context.Context, id string) (Session, error) {
	h, err := s.rdb.HGetAll(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("redis load session: %w", err)
	}
	if len(h) == 0 {
		return Session{}, ErrSessionNotFound
	}

	sess := Session{
		ID:          id,
		PrincipalID: h["principal_id"],
		Fingerprint: h["fingerprint"],
		Provenance: Provenance{
			UserAgent:     h["user_agent"],
			OriginAddress: h["origin"],
		},
	}
	for field, dst := range map[string]*time.Time{
		"expires_at": &sess.ExpiresAt,
		"created_at": &sess.CreatedAt,
		"updated_at": &sess.UpdatedAt,
	} {
		ms, err := strconv.ParseInt(h[field], 10, 64)
		if err != nil {
			return Session{}, fmt.Errorf("redis session %s: bad %s", id, field)
		}
		*dst = time.UnixMilli(ms).UTC()
	}
	return sess, nil
}

func ttlMillis(expiresAt, now time.Time) int64 {
	ms := expiresAt.Sub(now).Milliseconds()
	if ms < 1 {
		return 1
	}
	return ms
}
