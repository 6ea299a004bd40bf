package sheets

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
	"github.com/gridflow/gridflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *memory.Persistence) {
	t.Helper()

	p := memory.NewPersistence()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewService(p, logger), p
}

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	created, err := service.Create(ctx, "Auditions", []models.ColumnDef{
		{Key: "name", Label: "Name", Type: "text", Order: 0},
		{Key: "status", Label: "Status", Type: "select", Order: 1, Options: []string{"Selected", "Rejected"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Auditions", got.Name)
	require.Len(t, got.Columns, 2)
	assert.Equal(t, []string{"Selected", "Rejected"}, got.Columns[1].Options)
}

func TestService_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	created, err := service.Create(ctx, "Auditions", nil)
	require.NoError(t, err)

	name := "Auditions 2026"
	updated, err := service.Update(ctx, created.ID, UpdateSheetInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Auditions 2026", updated.Name)
	assert.Empty(t, updated.Columns)
}

func TestService_GetMissing(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Get(context.Background(), "nope")
	assert.True(t, persistence.IsNotFound(err))
}
