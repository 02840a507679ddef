package scriptify

import (
	"log"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/go-analyze/bulk"
	"golang.org/x/sync/singleflight"
)

const debugMetadata = false

// Declaration is a declarative customization fact for one symbol. Several declarations of the same symbol
// are merged: a later name or format replaces the earlier one, while the flags only accumulate.
type Declaration struct {
	Symbol Symbol `msgpack:"s"`
	// Name overrides the display name of a class or member. An empty override is meaningful, a class
	// named "" is referenced as a bare global.
	Name *string `msgpack:"n,omitempty"`
	// Format is the call-format template of a method, or the getter-format template of a member.
	Format string `msgpack:"f,omitempty"`
	// ScriptOnly excludes a method or member from host folding.
	ScriptOnly bool `msgpack:"o,omitempty"`
	// Stateful gives each call site of a method a private persistent state slot.
	Stateful bool `msgpack:"t,omitempty"`
}

// DisplayName declares the script name of a class or member.
func DisplayName(sym Symbol, name string) Declaration {
	return Declaration{Symbol: sym, Name: &name}
}

// CallFormat declares the call template of a method, {N} refers to the N-th argument.
func CallFormat(sym Symbol, format string) Declaration {
	return Declaration{Symbol: sym, Format: format}
}

// GetFormat declares the getter template of a member, {0} refers to the object or class.
func GetFormat(sym Symbol, format string) Declaration {
	return Declaration{Symbol: sym, Format: format}
}

// ScriptOnly declares a method or member as existing only in the script environment.
func ScriptOnly(sym Symbol) Declaration {
	return Declaration{Symbol: sym, ScriptOnly: true}
}

// Stateful declares a method as receiving a persistent state slot per call site.
func Stateful(sym Symbol) Declaration {
	return Declaration{Symbol: sym, Stateful: true}
}

// ClassFacts are the resolved facts of a class.
type ClassFacts struct {
	Name string
}

// MethodFacts are the resolved facts of a method.
type MethodFacts struct {
	Format     string
	ScriptOnly bool
	Stateful   bool
}

// MemberFacts are the resolved facts of a field or property.
type MemberFacts struct {
	Name       string
	Format     string
	ScriptOnly bool
}

// Registry resolves and caches metadata facts by symbol. It is safe for concurrent use, compiles running in
// parallel share the cache.
type Registry struct {
	mu      sync.RWMutex
	decls   map[Symbol]*Declaration
	applied map[string]bool // manifest fingerprints already declared
	cache   *ristretto.Cache[string, any]
	group   singleflight.Group
	// generation is bumped by Declare so facts built from an older table are never served again
	generation atomic.Uint64
}

// NewRegistry creates a Registry with a facts cache budget of cacheMB and the given declarations.
func NewRegistry(cacheMB int, decls ...Declaration) (*Registry, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 100_000,
		MaxCost:     int64(max(cacheMB, 1)) << 20,
		BufferItems: 64,
		Metrics:     debugMetadata,
	})
	if err != nil {
		return nil, err
	}
	r := &Registry{
		decls:   make(map[Symbol]*Declaration),
		applied: make(map[string]bool),
		cache:   cache,
	}
	r.Declare(decls...)
	return r, nil
}

// Declare merges declarations into the registry. Facts resolved before the call are not served again.
func (r *Registry) Declare(decls ...Declaration) {
	if len(decls) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range decls {
		existing, ok := r.decls[d.Symbol]
		if !ok {
			merged := d
			if d.Name != nil {
				name := *d.Name
				merged.Name = &name
			}
			r.decls[d.Symbol] = &merged
			continue
		}
		if d.Name != nil {
			if existing.Name != nil && *existing.Name != *d.Name {
				log.Printf("%sredeclared name of %s: %q -> %q", ErrorLogPrefix, d.Symbol, *existing.Name, *d.Name)
			}
			name := *d.Name
			existing.Name = &name
		}
		if d.Format != "" {
			if existing.Format != "" && existing.Format != d.Format {
				log.Printf("%sredeclared format of %s: %q -> %q", ErrorLogPrefix, d.Symbol, existing.Format, d.Format)
			}
			existing.Format = d.Format
		}
		existing.ScriptOnly = existing.ScriptOnly || d.ScriptOnly
		existing.Stateful = existing.Stateful || d.Stateful
	}
	r.generation.Add(1) // older cache entries are unreachable and age out
}

// Declarations returns a copy of the merged declaration table ordered by symbol.
func (r *Registry) Declarations() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ptrs := bulk.MapValuesSlice(r.decls)
	result := make([]Declaration, len(ptrs))
	for i, d := range ptrs {
		result[i] = *d
	}
	slices.SortFunc(result, func(a, b Declaration) int {
		if a.Symbol < b.Symbol {
			return -1
		} else if a.Symbol > b.Symbol {
			return 1
		}
		return 0
	})
	return result
}

func (r *Registry) lookup(sym Symbol) (Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.decls[sym]
	if !ok {
		return Declaration{}, false
	}
	return *d, true
}

// resolve returns cached facts for key, building them at most once per concurrent burst of lookups. An
// entry the cache dropped is rebuilt, which is harmless since building is idempotent.
func resolve[T any](r *Registry, key string, build func() T) T {
	key = strconv.FormatUint(r.generation.Load(), 36) + key
	if v, ok := r.cache.Get(key); ok {
		return v.(T)
	}
	v, _, _ := r.group.Do(key, func() (any, error) {
		facts := build()
		r.cache.Set(key, facts, int64(len(key))+64)
		return facts, nil
	})
	if debugMetadata {
		log.Println("metadata cache: " + r.cache.Metrics.String())
	}
	return v.(T)
}

// ClassFacts resolves the facts of class c, defaulting the name to the declared name.
func (r *Registry) ClassFacts(c *Class) ClassFacts {
	if c == nil {
		return ClassFacts{}
	}
	return resolve(r, "c:"+string(c.Symbol), func() ClassFacts {
		facts := ClassFacts{Name: c.Name}
		if d, ok := r.lookup(c.Symbol); ok && d.Name != nil {
			facts.Name = *d.Name
		}
		return facts
	})
}

// MethodFacts resolves the facts of method m.
func (r *Registry) MethodFacts(m *Method) MethodFacts {
	return resolve(r, "m:"+string(m.Symbol), func() MethodFacts {
		d, _ := r.lookup(m.Symbol)
		return MethodFacts{Format: d.Format, ScriptOnly: d.ScriptOnly, Stateful: d.Stateful}
	})
}

// MemberFacts resolves the facts of member m, defaulting the name to the declared name.
func (r *Registry) MemberFacts(m *Member) MemberFacts {
	return resolve(r, "f:"+string(m.Symbol), func() MemberFacts {
		facts := MemberFacts{Name: m.Name}
		if d, ok := r.lookup(m.Symbol); ok {
			if d.Name != nil {
				facts.Name = *d.Name
			}
			facts.Format = d.Format
			facts.ScriptOnly = d.ScriptOnly
		}
		return facts
	})
}

// Close releases the cache resources.
func (r *Registry) Close() {
	r.cache.Close()
}
