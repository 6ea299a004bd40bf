// Package memory provides an in-memory persistence implementation used by
// tests and local development.
package memory

import (
	"context"
	"sync"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/persistence"
)

// Persistence implements persistence.Persistence with mutex-protected maps.
// All repositories share one lock so a merge update is a single atomic
// read-modify-write, matching the transactional contract of the SQL backend.
type Persistence struct {
	mu      sync.RWMutex
	sheets  map[string]*models.Sheet
	rows    map[string]*models.Row
	rowSeq  map[string]int64 // insertion order per row id, breaks position ties
	nextSeq int64
	rules   map[string]*models.Rule
	entries []*models.LogEntry
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		sheets: make(map[string]*models.Sheet),
		rows:   make(map[string]*models.Row),
		rowSeq: make(map[string]int64),
		rules:  make(map[string]*models.Rule),
	}
}

func (p *Persistence) Sheets() persistence.SheetRepository             { return &sheetRepository{p} }
func (p *Persistence) Rows() persistence.RowRepository                 { return &rowRepository{p} }
func (p *Persistence) Rules() persistence.RuleRepository               { return &ruleRepository{p} }
func (p *Persistence) ExecutionLog() persistence.ExecutionLogRepository { return &logRepository{p} }

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(_ context.Context) error { return nil }

// Close discards nothing; the store lives and dies with the process.
func (p *Persistence) Close(_ context.Context) error { return nil }

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}

	return out
}

func cloneRow(row *models.Row) *models.Row {
	clone := *row
	clone.Data = cloneData(row.Data)

	return &clone
}

func cloneRule(rule *models.Rule) *models.Rule {
	clone := *rule
	clone.ActionConfig = cloneData(rule.ActionConfig)

	return &clone
}
