package runner

import (
	"fmt"
	"sync"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/logger"
)

// Registry maps runner types to variants, in registration order.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant
	order    []string
	log      *logger.Logger

	// MaxRows is applied to every runner the registry builds.
	MaxRows int
}

// NewRegistry returns an empty registry. A nil log discards output.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{variants: make(map[string]Variant), log: log}
}

// DefaultRegistry returns a registry holding Hive, HiveHTTP and Impala.
func DefaultRegistry(log *logger.Logger) *Registry {
	r := NewRegistry(log)
	for _, v := range []Variant{Hive, HiveHTTP, Impala} {
		_ = r.Register(v)
	}
	return r
}

// Register adds v. Registering a type twice is an error.
func (r *Registry) Register(v Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v.Type == "" {
		return errs.New(errs.ErrKindInvalidInput, "runner type is empty")
	}
	if _, ok := r.variants[v.Type]; ok {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("runner %q already registered", v.Type))
	}
	r.variants[v.Type] = v
	r.order = append(r.order, v.Type)
	r.log.Debugf("registered runner %s", v.Type)
	return nil
}

// Lookup returns the variant registered under typ.
func (r *Registry) Lookup(typ string) (Variant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[typ]
	return v, ok
}

// Variants returns all variants in registration order.
func (r *Registry) Variants() []Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Variant, 0, len(r.order))
	for _, typ := range r.order {
		out = append(out, r.variants[typ])
	}
	return out
}

// New builds a runner of type typ from settings.
func (r *Registry) New(typ string, settings config.Settings) (*Adapter, error) {
	v, ok := r.Lookup(typ)
	if !ok {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown runner type %q", typ))
	}
	a, err := NewAdapter(v, settings, r.log)
	if err != nil {
		return nil, err
	}
	a.MaxRows = r.MaxRows
	return a, nil
}
