package enforcement

import (
	"sync"

	"mediafrag/models"
)

// Registry owns the machines of a set of elements, keyed by element
// identity. Runtime state lives here rather than on the elements.
type Registry struct {
	opts Options

	mu       sync.Mutex
	machines map[Element]*Machine
}

// NewRegistry creates a registry whose machines share opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		machines: make(map[Element]*Machine),
	}
}

// Apply binds frag to el, releasing any previous binding first. A fragment
// with no effective boundary only releases the element and returns nil.
func (r *Registry) Apply(el Element, frag *models.Fragment, label string) (*Machine, error) {
	r.Cleanup(el)
	if frag.Effective() == nil {
		return nil, nil
	}

	opts := r.opts
	opts.Label = label
	m, err := Bind(el, frag, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.machines[el] = m
	r.mu.Unlock()
	return m, nil
}

// Cleanup releases el. Unknown elements are ignored.
func (r *Registry) Cleanup(el Element) {
	r.mu.Lock()
	m, ok := r.machines[el]
	delete(r.machines, el)
	r.mu.Unlock()

	if ok {
		m.Cleanup()
	}
}

// CleanupAll releases every element.
func (r *Registry) CleanupAll() {
	r.mu.Lock()
	machines := r.machines
	r.machines = make(map[Element]*Machine)
	r.mu.Unlock()

	for _, m := range machines {
		m.Cleanup()
	}
}

// Machine returns the machine bound to el.
func (r *Registry) Machine(el Element) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[el]
	return m, ok
}

// Len returns the number of bound elements.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}
