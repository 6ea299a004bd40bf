package providers

import (
	"fmt"

	"github.com/gridflow/gridflow/pkg/config"
	"github.com/gridflow/gridflow/pkg/models"
)

// Registry maps action types to their providers. The set is closed: every
// provider is registered at construction time and unknown action types are
// an error, never a silent no-op.
type Registry struct {
	providers map[models.ActionType]Provider
}

// NewRegistry builds a registry with the built-in providers wired from the
// given configuration.
func NewRegistry(cfg config.ProviderConfigFile) *Registry {
	return &Registry{
		providers: map[models.ActionType]Provider{
			models.ActionTypeMessage:     NewMessageProvider(cfg.Message),
			models.ActionTypeEmail:       NewEmailProvider(cfg.Email),
			models.ActionTypeGroupInvite: NewGroupInviteProvider(cfg.GroupInvite),
		},
	}
}

// Get returns the provider for the action type.
func (r *Registry) Get(actionType models.ActionType) (Provider, error) {
	provider, ok := r.providers[actionType]
	if !ok {
		return nil, fmt.Errorf("no provider registered for action type %q", actionType)
	}

	return provider, nil
}

// Register replaces the provider for an action type. Used by tests to
// substitute fakes.
func (r *Registry) Register(actionType models.ActionType, provider Provider) {
	r.providers[actionType] = provider
}
