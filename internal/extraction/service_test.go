package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	response string
	err      error
	calls    int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Complete(ctx context.Context, _, _ string) (string, error) {
	p.calls++
	return p.response, p.err
}

type slowProvider struct{}

func (slowProvider) Name() string { return "slow" }

func (slowProvider) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestService_PrimarySucceeds(t *testing.T) {
	primary := &stubProvider{name: "anthropic", response: `{"is_lead":true,"confidence":80}`}
	secondary := &stubProvider{name: "mistral"}

	svc := NewService([]Provider{primary, secondary})
	r, err := svc.Extract(context.Background(), "sys", "hello")

	require.NoError(t, err)
	assert.Equal(t, "anthropic", r.Provider)
	assert.Equal(t, 80, r.Confidence)
	assert.Equal(t, 0, secondary.calls)
}

func TestService_FallsBackOnErrorAndMalformedResponse(t *testing.T) {
	tests := []struct {
		name    string
		primary *stubProvider
	}{
		{"network error", &stubProvider{name: "anthropic", err: errors.New("connection refused")}},
		{"malformed", &stubProvider{name: "anthropic", response: "sorry, no json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondary := &stubProvider{name: "mistral", response: `{"is_lead":true,"confidence":70}`}
			var observed []string

			svc := NewService([]Provider{tt.primary, secondary}, WithObserver(func(p, r string) {
				observed = append(observed, p+":"+r)
			}))
			r, err := svc.Extract(context.Background(), "sys", "hello")

			require.NoError(t, err)
			assert.Equal(t, "mistral", r.Provider)
			assert.Equal(t, 1, tt.primary.calls)
			assert.Contains(t, observed, "mistral:ok")
		})
	}
}

func TestService_ChainExhausted(t *testing.T) {
	svc := NewService([]Provider{
		&stubProvider{name: "anthropic", err: errors.New("500")},
		&stubProvider{name: "mistral", err: errors.New("401")},
	})

	r, err := svc.Extract(context.Background(), "sys", "hello")
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_NoProviders(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Extract(context.Background(), "sys", "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_TimeoutBoundsEachAttempt(t *testing.T) {
	secondary := &stubProvider{name: "mistral", response: `{"is_lead":false,"confidence":10}`}
	svc := NewService([]Provider{slowProvider{}, secondary}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	r, err := svc.Extract(context.Background(), "sys", "hello")

	require.NoError(t, err)
	assert.Equal(t, "mistral", r.Provider)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestService_OpenCircuitSkipsProvider(t *testing.T) {
	primary := &stubProvider{name: "anthropic", err: errors.New("down")}
	secondary := &stubProvider{name: "mistral", response: `{"is_lead":true,"confidence":90}`}
	svc := NewService([]Provider{primary, secondary}, WithBreaker(2, time.Hour))

	for i := 0; i < 4; i++ {
		_, err := svc.Extract(context.Background(), "sys", "hello")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 4, secondary.calls)
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := newBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	require.NoError(t, b.allow())
	b.record(errors.New("fail"))
	assert.ErrorIs(t, b.allow(), ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	require.NoError(t, b.allow())
	assert.ErrorIs(t, b.allow(), ErrCircuitOpen, "only one probe while half-open")

	b.record(nil)
	assert.NoError(t, b.allow())
}
