// Package providers implements the action providers rules dispatch to.
package providers

import (
	"context"
	"log/slog"
)

// Result is the outcome a provider reports back for the execution log.
type Result struct {
	Detail map[string]any
}

// Provider executes one action type against a row. Config is the rule's
// action_config; rowData is the row's merged cell data at execution time.
type Provider interface {
	ID() string
	Execute(ctx context.Context, config map[string]any, rowData map[string]any, logger *slog.Logger) (*Result, error)
}

func stringOrDefault(config map[string]any, key, fallback string) string {
	value, ok := config[key].(string)
	if !ok || value == "" {
		return fallback
	}

	return value
}
