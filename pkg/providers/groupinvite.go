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

const groupInviteRequestTimeout = 30 * time.Second

var (
	// ErrGroupInviteNotConfigured is returned when no invite service URL is set.
	ErrGroupInviteNotConfigured = errors.New("group invite service not configured")
	// ErrGroupInviteFailed is returned on a non-2xx invite service response.
	ErrGroupInviteFailed = errors.New("group invite request failed")
)

// GroupInviteProvider asks the group service to add the row's contact to a
// named group and returns the invite link it generates.
type GroupInviteProvider struct {
	config config.GroupInviteConfig
	client *http.Client
}

func NewGroupInviteProvider(cfg config.GroupInviteConfig) *GroupInviteProvider {
	return &GroupInviteProvider{
		config: cfg,
		client: &http.Client{Timeout: groupInviteRequestTimeout},
	}
}

func (p *GroupInviteProvider) ID() string {
	return "group_invite"
}

func (p *GroupInviteProvider) Execute(ctx context.Context, actionConfig map[string]any, rowData map[string]any, logger *slog.Logger) (*Result, error) {
	logger = logger.With("module", "group_invite_provider")

	if p.config.BaseURL == "" {
		return nil, ErrGroupInviteNotConfigured
	}

	groupName, _ := actionConfig["group_name"].(string)
	phoneColumn := stringOrDefault(actionConfig, "phone_column", "phone")

	phone, ok := rowData[phoneColumn].(string)
	if !ok || phone == "" {
		return nil, fmt.Errorf("column %q: %w", phoneColumn, ErrMessagePhoneMissing)
	}

	payload := map[string]any{
		"group_name": groupName,
		"phone":      phone,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invite payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/groups/invites", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create invite request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invite request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read invite response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGroupInviteFailed, resp.StatusCode, string(respBody))
	}

	var inviteResponse struct {
		InviteLink string `json:"invite_link"`
	}

	if err := json.Unmarshal(respBody, &inviteResponse); err != nil {
		logger.WarnContext(ctx, "Failed to parse invite response as JSON", "error", err)
	}

	logger.InfoContext(ctx, "Group invite dispatched", "group_name", groupName, "status_code", resp.StatusCode)

	return &Result{
		Detail: map[string]any{
			"group_name":  groupName,
			"phone":       phone,
			"invite_link": inviteResponse.InviteLink,
			"status_code": resp.StatusCode,
		},
	}, nil
}
