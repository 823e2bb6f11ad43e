package validate

import (
	"sync"

	"github.com/sqldrill/sqldrill/internal/model"
)

// Predicate is a compiled check over a full query result, the escape hatch
// for rules the declarative grammar cannot express. Predicates live in code
// and are referenced from exercise records by name; executable logic is
// never stored in exercise data.
type Predicate func(*model.QueryResult) bool

// PredicateRegistry maps predicate names to compiled predicates. Registered
// at startup, read at grading time.
type PredicateRegistry struct {
	mu    sync.RWMutex
	preds map[string]Predicate
}

// NewPredicateRegistry creates an empty registry.
func NewPredicateRegistry() *PredicateRegistry {
	return &PredicateRegistry{preds: make(map[string]Predicate)}
}

// Register binds a predicate to a name, replacing any previous binding.
func (r *PredicateRegistry) Register(name string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preds[name] = p
}

// Get returns the named predicate, or false when none is registered.
func (r *PredicateRegistry) Get(name string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.preds[name]
	return p, ok
}

// Names returns the registered predicate names. Used by content lint to
// detect rules referencing predicates that were never compiled in.
func (r *PredicateRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.preds))
	for n := range r.preds {
		names = append(names, n)
	}
	return names
}
