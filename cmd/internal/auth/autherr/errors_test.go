package autherr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want error
	}{
		{err: Client("op", "bad"), want: ErrClient},
		{err: Unauthorized("op", "invalid refresh token"), want: ErrUnauthorized},
		{err: NotFound("op", "User not found"), want: ErrNotFound},
		{err: Conflict("op", "User already exists"), want: ErrConflict},
		{err: Infrastructure("op", errors.New("boom")), want: ErrInfrastructure},
		{err: errors.New("untagged"), want: ErrInfrastructure},
		{err: fmt.Errorf("wrapped: %w", Unauthorized("op", "x")), want: ErrUnauthorized},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, KindOf(tc.err), tc.err.Error())
	}
}

func TestInfrastructure_RetryableOnDeadline(t *testing.T) {
	t.Parallel()

	err := Infrastructure("session.Refresh", fmt.Errorf("find: %w", context.DeadlineExceeded))
	require.True(t, IsRetryable(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrInfrastructure)

	require.False(t, IsRetryable(Infrastructure("op", errors.New("syntax error"))))
	require.True(t, IsRetryable(Retryable("op", errors.New("redis unavailable"))))
}

func TestMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "invalid refresh token", Message(Unauthorized("op", "invalid refresh token"), "fallback"))
	require.Equal(t, "fallback", Message(errors.New("x"), "fallback"))
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "op: unauthorized: nope", Unauthorized("op", "nope").Error())
	e := &Error{Op: "op", Kind: ErrInfrastructure, Err: errors.New("down")}
	require.Equal(t, "op: infrastructure: down", e.Error())
}
