package secretstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedBackend blocks every fetch until release is closed and records the
// state of the context it was handed at that point.
type gatedBackend struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
	calls   int
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
}

func (g *gatedBackend) Name() string { return "gated" }

func (g *gatedBackend) FetchGroup(ctx context.Context, _ string) (map[string]string, error) {
	g.calls++
	g.started <- struct{}{}
	<-g.release
	g.ctxErr <- ctx.Err()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]string{"jwt_secret": "xyz"}, nil
}

func TestFetchGroupCallerCancelDoesNotPoisonSharedFetch(t *testing.T) {
	be := newGatedBackend()
	cli := New(be)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := cli.FetchGroup(leaderCtx, "AppSecrets")
		leaderErr <- err
	}()

	<-be.started
	cancel()

	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(be.release)
	assert.NoError(t, <-be.ctxErr, "backend call runs detached from the caller")

	got, err := cli.FetchGroup(context.Background(), "AppSecrets")
	require.NoError(t, err)
	assert.Equal(t, "xyz", got["jwt_secret"])
	assert.Equal(t, 1, be.calls)
}

// stringOnly implements Backend but neither RawReader nor Writer.
type stringOnly struct{}

func (stringOnly) Name() string { return "strings" }

func (stringOnly) FetchGroup(context.Context, string) (map[string]string, error) {
	return map[string]string{}, nil
}

func TestRawAccessNeedsCapableBackend(t *testing.T) {
	cli := New(stringOnly{})

	_, err := cli.FetchRaw(context.Background(), "AppSecrets")
	assert.Error(t, err)

	_, err = cli.PutGroup(context.Background(), "AppSecrets", map[string]string{"k": "v"})
	assert.True(t, errors.Is(err, ErrReadOnly))
}

func TestText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"plain"`, "plain"},
		{`"with \"quotes\""`, `with "quotes"`},
		{`5432`, "5432"},
		{`true`, "true"},
		{`null`, ""},
		{`{ "a" : 1 }`, `{"a":1}`},
	}
	for _, tt := range tests {
		got, err := Text([]byte(tt.raw))
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
	assert.JSONEq(t, `"x"`, string(StringValue("x")))
}
