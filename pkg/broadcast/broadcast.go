// Package broadcast pushes row events to live observers, grouped into one
// room per sheet.
package broadcast

import "context"

// Broadcaster delivers a payload to every observer of a sheet. Delivery is
// best effort: a slow or dead observer is dropped, never waited on.
type Broadcaster interface {
	Broadcast(ctx context.Context, sheetID string, payload any)
}

// Observer is one live connection watching a sheet.
type Observer interface {
	// Send writes one message. An error marks the observer dead; the room
	// manager removes it and calls Close.
	Send(payload []byte) error
	Close() error
}
