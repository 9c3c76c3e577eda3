package executor

import (
	"github.com/orchestr8/taskflow/internal/errs"
	"github.com/orchestr8/taskflow/pkg/registry"
)

// Registry is a capability table keyed by agent name. It wraps the shared
// generic registry rather than re-implementing a mutex-guarded map, using
// Set so that re-registering an agent name replaces it in place — the
// engine's "maintain the executor pool" contract expects add-or-replace,
// not reject-on-duplicate.
type Registry struct {
	base *registry.BaseRegistry[Agent]
}

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Agent]()}
}

// Register adds or replaces an agent under its own name.
func (r *Registry) Register(agent Agent) error {
	if agent == nil {
		return errs.New("executor.Registry", "Register", errs.KindValidation, "agent cannot be nil", nil)
	}
	name := agent.Name()
	if name == "" {
		return errs.New("executor.Registry", "Register", errs.KindValidation, "agent name cannot be empty", nil)
	}
	r.base.Set(name, agent)
	return nil
}

// Unregister removes an agent by name. Unregistering an unknown name is a
// no-op, matching the engine's "maintain the executor pool" contract.
func (r *Registry) Unregister(name string) {
	_ = r.base.Remove(name)
}

// Get looks up an agent by exact name.
func (r *Registry) Get(name string) (Agent, bool) {
	return r.base.Get(name)
}

// List returns a snapshot of all registered agents.
func (r *Registry) List() []Agent {
	return r.base.List()
}

// Names returns a sorted snapshot of all registered agent names.
func (r *Registry) Names() []string {
	return r.base.Names()
}
