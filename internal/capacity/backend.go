// Package capacity implements the §4.5 role: it watches demand and drives
// a pluggable backend that provisions/decommissions session runners.
package capacity

import "context"

// RunnerStatus describes one provisioned runner as the backend sees it.
type RunnerStatus struct {
	ID     string
	Status string
}

// Backend is the narrow interface a concrete hypervisor integration must
// satisfy. Only list/create/destroy are specified here; a concrete
// virtualization-host implementation is out of scope for the core (§1).
type Backend interface {
	List(ctx context.Context) ([]RunnerStatus, error)
	Create(ctx context.Context, id string, options map[string]string) error
	Destroy(ctx context.Context, id string) error
}
