package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/domain"
)

func TestDoPassesResult(t *testing.T) {
	g := New(Settings{Name: "test", Timeout: time.Second})

	res, err := g.Do(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, res)
}

func TestDoClassifiesTimeout(t *testing.T) {
	g := New(Settings{Name: "slow", Timeout: 20 * time.Millisecond})

	_, err := g.Do(context.Background(), func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
}

func TestDoWrapsPlainErrors(t *testing.T) {
	g := New(Settings{Name: "flaky"})

	_, err := g.Do(context.Background(), func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Contains(t, err.Error(), "boom")
}

func TestDoKeepsDomainKinds(t *testing.T) {
	g := New(Settings{Name: "cfg"})

	_, err := g.Do(context.Background(), func(ctx context.Context) (any, error) {
		return nil, domain.ErrConfiguration
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, "closed", g.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	g := New(Settings{Name: "down"})
	calls := 0
	fail := func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("unavailable")
	}

	for i := 0; i < 5; i++ {
		_, _ = g.Do(context.Background(), fail)
	}
	assert.Equal(t, "open", g.State())

	_, err := g.Do(context.Background(), fail)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, 5, calls)
}
