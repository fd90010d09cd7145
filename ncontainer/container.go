/*
Package ncontainer is the service container contract used by nkernel
plus a small lazy registry that satisfies it.

Services are looked up by string id. Ids for services that are looked up
by type (parameter resolution does this) come from TypeID.
*/
package ncontainer

import (
	"reflect"
	"sort"
	"sync"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// ErrNotFound is returned (wrapped) by Get when the id is unknown
var ErrNotFound = errors.New("service not found")

// Container is the read side of a service container
type Container interface {
	Has(id string) bool
	Get(id string) (any, error)
}

// Factory builds a service on first use.
type Factory func(c Container) (any, error)

type entry struct {
	value   any
	factory Factory
	built   bool
	once    *sync.Once
	err     error
}

// Registry is a Container with Set and lazy Factory registration.
// Factories run at most once; their result (or error) is remembered.
type Registry struct {
	lock    sync.RWMutex
	entries map[string]*entry
}

var _ Container = &Registry{}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Set registers a value, replacing any earlier definition.
func (r *Registry) Set(id string, value any) *Registry {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries[id] = &entry{value: value, built: true}
	return r
}

// Factory registers a lazily built value, replacing any earlier definition.
func (r *Registry) Factory(id string, f Factory) *Registry {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries[id] = &entry{factory: f, once: &sync.Once{}}
	return r
}

func (r *Registry) Has(id string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.entries[id]
	return ok
}

func (r *Registry) Get(id string) (any, error) {
	r.lock.RLock()
	e, ok := r.entries[id]
	r.lock.RUnlock()
	if !ok {
		return nil, NotFound(id)
	}
	if e.built {
		return e.value, nil
	}
	// the lock is not held while the factory runs so that factories can
	// call back into the registry
	e.once.Do(func() {
		e.value, e.err = e.factory(r)
		if e.err != nil {
			e.err = errors.Wrapf(e.err, "build service %s", id)
		}
	})
	return e.value, e.err
}

// IDs lists the registered ids in sorted order
func (r *Registry) IDs() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NotFound produces an error that wraps ErrNotFound and names the id.
func NotFound(id string) error {
	return errors.Wrapf(ErrNotFound, "%s", id)
}

// TypeID is the service id used for values looked up by type.
func TypeID(t reflect.Type) string {
	return reflectutils.TypeName(t)
}

// IDOf is TypeID for a compile-time type.
func IDOf[T any]() string {
	return TypeID(reflect.TypeOf((*T)(nil)).Elem())
}

// SetTyped registers value under the id for T.
func SetTyped[T any](r *Registry, value T) *Registry {
	return r.Set(IDOf[T](), value)
}

// Lookup fetches id and asserts its type.
func Lookup[T any](c Container, id string) (T, error) {
	var zero T
	v, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Errorf("service %s is a %T, not a %s", id, v, IDOf[T]())
	}
	return t, nil
}
