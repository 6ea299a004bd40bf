package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObserver struct {
	received [][]byte
	sendErr  error
	closed   bool
}

func (f *fakeObserver) Send(payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.received = append(f.received, payload)

	return nil
}

func (f *fakeObserver) Close() error {
	f.closed = true

	return nil
}

func newTestRoomManager() *RoomManager {
	return NewRoomManager(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestRoomManager_BroadcastReachesOnlyOwnRoom(t *testing.T) {
	m := newTestRoomManager()

	a := &fakeObserver{}
	b := &fakeObserver{}
	other := &fakeObserver{}

	m.Join("s1", a)
	m.Join("s1", b)
	m.Join("s2", other)

	m.Broadcast(context.Background(), "s1", map[string]any{"type": "row.updated"})

	require.Len(t, a.received, 1)
	require.Len(t, b.received, 1)
	assert.Empty(t, other.received)
	assert.JSONEq(t, `{"type": "row.updated"}`, string(a.received[0]))
}

func TestRoomManager_FailingObserverRemovedOthersStillServed(t *testing.T) {
	m := newTestRoomManager()

	healthy := &fakeObserver{}
	dead := &fakeObserver{sendErr: errors.New("connection reset")}

	m.Join("s1", healthy)
	m.Join("s1", dead)

	m.Broadcast(context.Background(), "s1", "hello")

	assert.Len(t, healthy.received, 1)
	assert.True(t, dead.closed)
	assert.Equal(t, 1, m.ObserverCount("s1"))

	// The dead observer is gone; the next broadcast only hits the healthy one.
	m.Broadcast(context.Background(), "s1", "again")
	assert.Len(t, healthy.received, 2)
}

func TestRoomManager_EmptyRoomPruned(t *testing.T) {
	m := newTestRoomManager()

	a := &fakeObserver{}
	m.Join("s1", a)
	require.Equal(t, 1, m.RoomCount())

	m.Leave("s1", a)
	assert.Equal(t, 0, m.RoomCount())
}

func TestRoomManager_LastFailingObserverPrunesRoom(t *testing.T) {
	m := newTestRoomManager()

	dead := &fakeObserver{sendErr: errors.New("gone")}
	m.Join("s1", dead)

	m.Broadcast(context.Background(), "s1", "x")
	assert.Equal(t, 0, m.RoomCount())
}

func TestRoomManager_BroadcastToUnknownSheetIsNoop(t *testing.T) {
	m := newTestRoomManager()

	m.Broadcast(context.Background(), "nope", "x")
	assert.Equal(t, 0, m.RoomCount())
}

func TestRoomManager_LeaveUnknownObserverIsNoop(t *testing.T) {
	m := newTestRoomManager()

	m.Leave("s1", &fakeObserver{})
	assert.Equal(t, 0, m.RoomCount())
}
