package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gridflow/gridflow/pkg/channels/gochannel"
	"github.com/gridflow/gridflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	received := make(chan *events.AutomationTriggered, 1)

	err = bus.Handle(events.AutomationTriggeredEvent, func(ctx context.Context, event any) error {
		triggered, ok := event.(*events.AutomationTriggered)
		require.True(t, ok)
		received <- triggered

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.AutomationTriggered{
		BaseEvent: events.NewBaseEvent(events.AutomationTriggeredEvent),
		SheetID:   "sheet-1",
		RuleID:    "rule-1",
		RowID:     "row-1",
	}

	require.NoError(t, bus.Publish(ctx, "sheet-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, "rule-1", got.RuleID)
		assert.Equal(t, "row-1", got.RowID)
		assert.Equal(t, "sheet-1", got.SheetID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
