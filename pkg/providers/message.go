package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gridflow/gridflow/pkg/config"
)

const messageRequestTimeout = 30 * time.Second

var (
	// ErrMessageGatewayNotConfigured is returned when no gateway base URL is set.
	ErrMessageGatewayNotConfigured = errors.New("message gateway not configured")
	// ErrMessagePhoneMissing is returned when the row has no phone value.
	ErrMessagePhoneMissing = errors.New("row has no phone number")
	// ErrMessageGatewayFailed is returned on a non-2xx gateway response.
	ErrMessageGatewayFailed = errors.New("message gateway request failed")
)

// MessageProvider sends a templated message to the row's phone number
// through the outbound messaging gateway.
type MessageProvider struct {
	config config.MessageGatewayConfig
	client *http.Client
}

func NewMessageProvider(cfg config.MessageGatewayConfig) *MessageProvider {
	return &MessageProvider{
		config: cfg,
		client: &http.Client{Timeout: messageRequestTimeout},
	}
}

func (p *MessageProvider) ID() string {
	return "message"
}

// Execute posts the template name and recipient to the gateway. The phone
// number is read from the column named by phone_column, defaulting to
// "phone".
func (p *MessageProvider) Execute(ctx context.Context, actionConfig map[string]any, rowData map[string]any, logger *slog.Logger) (*Result, error) {
	logger = logger.With("module", "message_provider")

	if p.config.BaseURL == "" {
		return nil, ErrMessageGatewayNotConfigured
	}

	template, _ := actionConfig["template"].(string)
	phoneColumn := stringOrDefault(actionConfig, "phone_column", "phone")

	phone, ok := rowData[phoneColumn].(string)
	if !ok || phone == "" {
		return nil, fmt.Errorf("column %q: %w", phoneColumn, ErrMessagePhoneMissing)
	}

	payload := map[string]any{
		"to":       phone,
		"template": template,
		"data":     rowData,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrMessageGatewayFailed, resp.StatusCode, string(respBody))
	}

	logger.InfoContext(ctx, "Message dispatched", "template", template, "status_code", resp.StatusCode)

	return &Result{
		Detail: map[string]any{
			"to":          phone,
			"template":    template,
			"status_code": resp.StatusCode,
		},
	}, nil
}
