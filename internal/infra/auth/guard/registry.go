package guard

import (
	"fmt"
	"sync"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
)

// Operation names a guarded entry point: the resource it belongs to and the
// method on that resource.
type Operation struct {
	Resource string
	Method   string
}

func Op(resource, method string) Operation {
	return Operation{Resource: resource, Method: method}
}

func (o Operation) String() string {
	return fmt.Sprintf("%s:%s", o.Resource, o.Method)
}

// Registry holds the declared requirements. A method-level requirement
// replaces the resource-level one for that method.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]domain.Requirement
	methods   map[Operation]domain.Requirement
}

func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]domain.Requirement),
		methods:   make(map[Operation]domain.Requirement),
	}
}

func (r *Registry) Resource(resource string, req domain.Requirement) *Registry {
	r.mu.Lock()
	r.resources[resource] = req
	r.mu.Unlock()
	return r
}

func (r *Registry) Method(op Operation, req domain.Requirement) *Registry {
	r.mu.Lock()
	r.methods[op] = req
	r.mu.Unlock()
	return r
}

// Lookup returns the effective requirement for op and whether one is declared.
func (r *Registry) Lookup(op Operation) (domain.Requirement, bool) {
	if r == nil {
		return domain.Requirement{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if req, ok := r.methods[op]; ok {
		return req, true
	}
	req, ok := r.resources[op.Resource]
	return req, ok
}
