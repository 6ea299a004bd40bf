package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// RoomManager tracks observers per sheet in process memory. Rooms are created
// on first join and pruned when their last observer leaves, so the map never
// accumulates entries for sheets nobody watches.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]map[Observer]struct{}
	logger *slog.Logger
}

func NewRoomManager(logger *slog.Logger) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]map[Observer]struct{}),
		logger: logger.With("module", "broadcast"),
	}
}

// Join registers an observer for the sheet's room.
func (m *RoomManager) Join(sheetID string, observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[sheetID]
	if !ok {
		room = make(map[Observer]struct{})
		m.rooms[sheetID] = room
	}

	room[observer] = struct{}{}

	m.logger.Debug("Observer joined room", "sheet_id", sheetID, "observers", len(room))
}

// Leave removes an observer; the room is pruned when it empties.
func (m *RoomManager) Leave(sheetID string, observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(sheetID, observer)
}

func (m *RoomManager) removeLocked(sheetID string, observer Observer) {
	room, ok := m.rooms[sheetID]
	if !ok {
		return
	}

	delete(room, observer)

	if len(room) == 0 {
		delete(m.rooms, sheetID)
	}
}

// Broadcast sends the payload to every observer of the sheet. Observers whose
// send fails are removed and closed; the rest still receive the message.
func (m *RoomManager) Broadcast(ctx context.Context, sheetID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to marshal broadcast payload", "sheet_id", sheetID, "error", err)

		return
	}

	m.BroadcastRaw(ctx, sheetID, data)
}

// BroadcastRaw sends pre-encoded bytes. Used by the relay, which receives
// payloads already marshalled by the publishing process.
func (m *RoomManager) BroadcastRaw(ctx context.Context, sheetID string, data []byte) {
	m.mu.RLock()
	room := m.rooms[sheetID]
	observers := make([]Observer, 0, len(room))

	for observer := range room {
		observers = append(observers, observer)
	}
	m.mu.RUnlock()

	if len(observers) == 0 {
		return
	}

	var stale []Observer

	for _, observer := range observers {
		err := observer.Send(data)
		if err != nil {
			stale = append(stale, observer)
		}
	}

	if len(stale) == 0 {
		return
	}

	m.mu.Lock()
	for _, observer := range stale {
		m.removeLocked(sheetID, observer)
	}
	m.mu.Unlock()

	for _, observer := range stale {
		_ = observer.Close()
	}

	m.logger.InfoContext(ctx, "Removed stale observers",
		"sheet_id", sheetID, "removed", len(stale), "delivered", len(observers)-len(stale))
}

// ObserverCount returns how many observers the sheet's room holds.
func (m *RoomManager) ObserverCount(sheetID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rooms[sheetID])
}

// RoomCount returns how many rooms currently exist.
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rooms)
}
