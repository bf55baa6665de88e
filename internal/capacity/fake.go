package capacity

import (
	"context"
	"sync"
)

// FakeBackend is an in-memory Backend for tests, as §9's design notes ask
// for explicitly ("provide an in-memory fake for tests and ship the
// hypervisor-specific implementation as a separate collaborator").
type FakeBackend struct {
	mu       sync.Mutex
	runners  map[string]string // id -> status
	Outage   bool              // when true, List returns an empty slice
	CreateFn func(id string)   // optional hook, e.g. to simulate a runner registering its session asynchronously
}

// NewFakeBackend builds an empty fake.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{runners: make(map[string]string)}
}

func (f *FakeBackend) List(ctx context.Context) ([]RunnerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Outage {
		return nil, nil
	}

	out := make([]RunnerStatus, 0, len(f.runners))
	for id, status := range f.runners {
		out = append(out, RunnerStatus{ID: id, Status: status})
	}
	return out, nil
}

func (f *FakeBackend) Create(ctx context.Context, id string, options map[string]string) error {
	f.mu.Lock()
	f.runners[id] = "running"
	hook := f.CreateFn
	f.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return nil
}

func (f *FakeBackend) Destroy(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.runners, id)
	return nil
}
