package rows

import (
	"time"

	"github.com/gridflow/gridflow/pkg/models"
)

func testSheet(id string) *models.Sheet {
	now := time.Now().UTC()

	return &models.Sheet{
		ID:        id,
		Name:      "Sheet " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
