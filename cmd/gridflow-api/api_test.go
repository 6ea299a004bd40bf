package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gofiber/fiber/v3"
	"github.com/gridflow/gridflow/pkg/broadcast"
	"github.com/gridflow/gridflow/pkg/channels/gochannel"
	"github.com/gridflow/gridflow/pkg/eventbus"
	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence/memory"
	"github.com/gridflow/gridflow/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, app *fiber.App, method, path string, payload any) *http.Response {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out T

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))

	return out
}

// A row update matching a rule must end with a terminal log entry even on the
// single-binary gochannel deployment, where the embedded worker is the only
// consumer of the bus.
func TestAPI_GoChannelBusExecutesAutomationsInProcess(t *testing.T) {
	p := memory.NewPersistence()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	rooms := broadcast.NewRoomManager(logger)
	api := NewAPI(logger, p, bus, rooms, rooms)
	app := api.App()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := api.InProcessWorker("does-not-exist.yaml")

	go func() { _ = worker.Start(ctx) }()

	sheet := decodeBody[models.Sheet](t, postJSON(t, app, http.MethodPost, "/sheets", web.CreateSheetRequest{
		Name: "Auditions",
	}))

	rule := decodeBody[models.Rule](t, postJSON(t, app, http.MethodPost, "/sheets/"+sheet.ID+"/rules",
		web.CreateRuleRequest{
			TriggerColumn: "status",
			TriggerValue:  "Selected",
			ActionType:    "message",
			ActionConfig:  map[string]any{"template": "Welcome_Msg"},
		}))

	row := decodeBody[models.Row](t, postJSON(t, app, http.MethodPost, "/sheets/"+sheet.ID+"/rows",
		web.CreateRowRequest{
			Data: map[string]any{"name": "Ada", "phone": "+111", "status": "Pending"},
		}))

	resp := postJSON(t, app, http.MethodPatch, "/rows/"+row.ID, web.UpdateRowRequest{
		Data: map[string]any{"status": "Selected"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The embedded worker consumes the event and writes the terminal entry.
	// No gateway is configured, so the outcome is a failed execution, which
	// still proves the enqueue-execute-log pipeline ran end to end.
	assert.Eventually(t, func() bool {
		entries, err := p.ExecutionLog().ListByRule(context.Background(), rule.ID)

		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := p.ExecutionLog().ListByRule(context.Background(), rule.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RunStatusFailed, entries[0].Status)
}
