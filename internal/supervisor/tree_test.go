package supervisor

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingService struct {
	name   string
	starts atomic.Int32
	fail   bool
}

func (s *countingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	if s.fail {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func TestNewTree_AppliesDefaults(t *testing.T) {
	tree := NewTree(zerolog.Nop(), TreeConfig{})

	assert.Equal(t, DefaultTreeConfig(), tree.config)
}

func TestTree_RunsServicesUntilCanceled(t *testing.T) {
	tree := NewTree(zerolog.Nop(), TreeConfig{ShutdownTimeout: time.Second})
	display := &countingService{name: "display"}
	metrics := &countingService{name: "metrics"}
	tree.AddDisplayService(display)
	tree.AddOpsService(metrics)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	assert.Eventually(t, func() bool {
		return display.starts.Load() == 1 && metrics.starts.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestTree_RestartsFailingService(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	tree := NewTree(log, TreeConfig{
		FailureThreshold: 100,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := &countingService{name: "flaky", fail: true}
	tree.AddDisplayService(flaky)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	assert.Eventually(t, func() bool { return flaky.starts.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-errCh
	require.Contains(t, buf.String(), "flaky")
}
