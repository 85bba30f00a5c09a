package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/orderbot/sheetsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_RoutesByKind(t *testing.T) {
	d := New(zap.NewNop())

	var got models.EventKind
	d.Register(models.EventMessageNew, func(ctx context.Context, evt *Event) error {
		got = evt.Kind
		return nil
	})

	err := d.Dispatch(context.Background(), &Event{
		Kind:    models.EventMessageNew,
		Message: &models.MessageEvent{MessageID: "om_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventMessageNew, got)
}

func TestDispatcher_UnregisteredKindIsNoop(t *testing.T) {
	d := New(zap.NewNop())
	err := d.Dispatch(context.Background(), &Event{Kind: models.EventCardAction})
	assert.NoError(t, err)
}

func TestDispatcher_HandlerErrorPropagates(t *testing.T) {
	d := New(zap.NewNop())
	d.Register(models.EventMessageNew, func(ctx context.Context, evt *Event) error {
		return errors.New("boom")
	})

	err := d.Dispatch(context.Background(), &Event{Kind: models.EventMessageNew})
	assert.Error(t, err)
}

func TestDispatcher_RecoversHandlerPanic(t *testing.T) {
	d := New(zap.NewNop())
	d.Register(models.EventMessageNew, func(ctx context.Context, evt *Event) error {
		panic("handler bug")
	})

	err := d.Dispatch(context.Background(), &Event{Kind: models.EventMessageNew})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestDispatcher_CloseNeverReturnsWithHandlerInFlight(t *testing.T) {
	d := New(zap.NewNop())

	var inFlight atomic.Int32
	d.Register(models.EventMessageNew, func(ctx context.Context, evt *Event) error {
		inFlight.Add(1)
		defer inFlight.Add(-1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.DispatchAsync(context.Background(), &Event{Kind: models.EventMessageNew})
		}()
	}

	// Close racing the dispatches must account for every accepted event.
	_ = d.Close()
	assert.Zero(t, inFlight.Load(), "Close returned while a handler was running")
	wg.Wait()
}

func TestDispatcher_CloseWaitsForAsyncHandlers(t *testing.T) {
	d := New(zap.NewNop())

	var done atomic.Int32
	release := make(chan struct{})
	d.Register(models.EventMessageNew, func(ctx context.Context, evt *Event) error {
		<-release
		done.Add(1)
		return nil
	})

	d.DispatchAsync(context.Background(), &Event{Kind: models.EventMessageNew})
	close(release)
	require.NoError(t, d.Close())

	assert.Equal(t, int32(1), done.Load())
	assert.Error(t, d.Dispatch(context.Background(), &Event{Kind: models.EventMessageNew}))
}
