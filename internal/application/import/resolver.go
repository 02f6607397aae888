package importapp

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/partner"
	"github.com/google/uuid"
)

// SynthesisPolicy decides what Resolve does with an unknown natural key
type SynthesisPolicy int

const (
	// FailUnresolved returns an UnresolvedReferenceError
	FailUnresolved SynthesisPolicy = iota
	// SynthesizePlaceholder creates a placeholder record for the key
	SynthesizePlaceholder
)

// DefaultPolicies returns the synthesis policy per entity type. Only
// salespersons are synthesized; every other missing reference is fatal for
// the referring record.
func DefaultPolicies() map[bulk.EntityType]SynthesisPolicy {
	return map[bulk.EntityType]SynthesisPolicy{
		bulk.EntitySalesperson: SynthesizePlaceholder,
	}
}

// Resolver maps natural keys to assigned identifiers per entity type. It is
// created empty for each run and only grows. Mutations are serialized;
// lookups may run concurrently.
type Resolver struct {
	mu       sync.RWMutex
	keys     map[bulk.EntityType]map[string]uuid.UUID
	aliases  map[bulk.EntityType]map[string]string
	seeded   map[bulk.EntityType]map[string]bool
	policies map[bulk.EntityType]SynthesisPolicy
	pending  []*partner.Salesperson
}

// NewResolver creates a resolver with the default synthesis policies
func NewResolver() *Resolver {
	return NewResolverWithPolicies(DefaultPolicies())
}

// NewResolverWithPolicies creates a resolver with explicit policies
func NewResolverWithPolicies(policies map[bulk.EntityType]SynthesisPolicy) *Resolver {
	return &Resolver{
		keys:     make(map[bulk.EntityType]map[string]uuid.UUID),
		aliases:  make(map[bulk.EntityType]map[string]string),
		seeded:   make(map[bulk.EntityType]map[string]bool),
		policies: policies,
	}
}

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// Seed loads identifiers already present in the destination so a rerun
// resolves to them instead of minting new ones
func (r *Resolver) Seed(entity bulk.EntityType, existing map[string]uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, id := range existing {
		key = normalizeKey(key)
		r.keysFor(entity)[key] = id
		if r.seeded[entity] == nil {
			r.seeded[entity] = make(map[string]bool)
		}
		r.seeded[entity][key] = true
	}
}

// Register records the identifier of a natural key and returns the
// identifier callers must use. When the key is already known, typically from
// Seed, the known identifier wins.
func (r *Resolver) Register(entity bulk.EntityType, key string, id uuid.UUID) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	key = normalizeKey(key)
	keys := r.keysFor(entity)
	if existing, ok := keys[key]; ok {
		return existing
	}
	keys[key] = id
	return id
}

// Alias makes alias resolve to the same identifier as key
func (r *Resolver) Alias(entity bulk.EntityType, alias, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alias, key = normalizeKey(alias), normalizeKey(key)
	if alias == key {
		return
	}
	if r.aliases[entity] == nil {
		r.aliases[entity] = make(map[string]string)
	}
	r.aliases[entity][alias] = key
}

// Existed reports whether the key came from the destination via Seed
func (r *Resolver) Existed(entity bulk.EntityType, key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seeded[entity][normalizeKey(key)]
}

// Lookup returns the identifier of a known key without synthesizing
func (r *Resolver) Lookup(entity bulk.EntityType, key string) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(entity, normalizeKey(key))
}

func (r *Resolver) lookupLocked(entity bulk.EntityType, key string) (uuid.UUID, bool) {
	if target, ok := r.aliases[entity][key]; ok {
		key = target
	}
	id, ok := r.keys[entity][key]
	return id, ok
}

// Resolve returns the identifier for a natural key. An unknown key is
// synthesized when the entity's policy allows it, otherwise an
// UnresolvedReferenceError is returned.
func (r *Resolver) Resolve(entity bulk.EntityType, key string) (uuid.UUID, error) {
	key = normalizeKey(key)
	if id, ok := r.Lookup(entity, key); ok {
		return id, nil
	}
	if key == "" || r.policies[entity] != SynthesizePlaceholder {
		return uuid.Nil, &bulk.UnresolvedReferenceError{Entity: entity, Key: key}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.lookupLocked(entity, key); ok {
		return id, nil
	}
	id, err := r.synthesizeLocked(entity, key)
	if err != nil {
		return uuid.Nil, err
	}
	r.keysFor(entity)[key] = id
	return id, nil
}

// ResolveFor is Resolve with the referring record filled into any
// UnresolvedReferenceError
func (r *Resolver) ResolveFor(referrer bulk.Record, entity bulk.EntityType, key string) (uuid.UUID, error) {
	id, err := r.Resolve(entity, key)
	var uerr *bulk.UnresolvedReferenceError
	if errors.As(err, &uerr) {
		uerr.Referrer = referrer.EntityType()
		uerr.ReferrerKey = referrer.NaturalKey()
	}
	return id, err
}

func (r *Resolver) synthesizeLocked(entity bulk.EntityType, key string) (uuid.UUID, error) {
	switch entity {
	case bulk.EntitySalesperson:
		sp, err := partner.NewPlaceholderSalesperson(key)
		if err != nil {
			return uuid.Nil, fmt.Errorf("synthesize %s %q: %w", entity, key, err)
		}
		r.pending = append(r.pending, sp)
		return sp.ID, nil
	}
	return uuid.Nil, &bulk.UnresolvedReferenceError{Entity: entity, Key: key}
}

// Placeholders drains the placeholders synthesized since the last call, in
// natural key order
func (r *Resolver) Placeholders() []*partner.Salesperson {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SalespersonID < out[j].SalespersonID
	})
	return out
}

func (r *Resolver) keysFor(entity bulk.EntityType) map[string]uuid.UUID {
	keys, ok := r.keys[entity]
	if !ok {
		keys = make(map[string]uuid.UUID)
		r.keys[entity] = keys
	}
	return keys
}
