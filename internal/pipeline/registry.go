package pipeline

import (
	"fmt"
	"sync"
)

// Registry holds the known experiments in registration order
type Registry struct {
	mu          sync.RWMutex
	experiments map[string]*Experiment
	order       []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		experiments: make(map[string]*Experiment),
	}
}

// Register validates and adds an experiment
func (r *Registry) Register(exp *Experiment) error {
	if exp == nil {
		return fmt.Errorf("cannot register nil experiment")
	}
	if err := exp.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.experiments[exp.Name]; exists {
		return fmt.Errorf("experiment %s already registered", exp.Name)
	}
	r.experiments[exp.Name] = exp
	r.order = append(r.order, exp.Name)
	return nil
}

// MustRegister is Register for the built-in catalogue
func (r *Registry) MustRegister(exps ...*Experiment) *Registry {
	for _, exp := range exps {
		if err := r.Register(exp); err != nil {
			panic(err)
		}
	}
	return r
}

// Get retrieves an experiment by name
func (r *Registry) Get(name string) (*Experiment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, exists := r.experiments[name]
	if !exists {
		return nil, fmt.Errorf("unknown experiment %q", name)
	}
	return exp, nil
}

// List returns all experiments in registration order
func (r *Registry) List() []*Experiment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exps := make([]*Experiment, 0, len(r.order))
	for _, name := range r.order {
		exps = append(exps, r.experiments[name])
	}
	return exps
}

// Names returns the experiment names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
