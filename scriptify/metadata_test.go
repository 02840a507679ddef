package scriptify

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, decls ...Declaration) *Registry {
	t.Helper()

	registry, err := NewRegistry(1, decls...)
	require.NoError(t, err)
	t.Cleanup(registry.Close)
	return registry
}

func TestRegistryDefaults(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	registry := newTestRegistry(t)

	assert.Equal(t, ClassFacts{Name: "Window"}, registry.ClassFacts(env.window))
	assert.Equal(t, ClassFacts{Name: "Color"}, registry.ClassFacts(env.colorClass))
	assert.Equal(t, ClassFacts{}, registry.ClassFacts(nil))
	assert.Equal(t, MethodFacts{}, registry.MethodFacts(env.windowGetValue))
	assert.Equal(t, MemberFacts{Name: "Width"}, registry.MemberFacts(env.blockWidth))
}

func TestRegistryDeclarations(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	registry := newTestRegistry(t, env.decls...)

	assert.Equal(t, ClassFacts{Name: "window"}, registry.ClassFacts(env.window))
	assert.Equal(t, ClassFacts{Name: ""}, registry.ClassFacts(env.global))
	assert.Equal(t, MethodFacts{ScriptOnly: true, Format: "nativeMethod({0},{1})"}, registry.MethodFacts(env.windowRename))
	assert.Equal(t, MethodFacts{ScriptOnly: true, Stateful: true}, registry.MethodFacts(env.globalSmooth))
	assert.Equal(t, MemberFacts{Name: "nativeProperty", ScriptOnly: true}, registry.MemberFacts(env.windowRenamed))
	assert.Equal(t, MemberFacts{Name: "InnerSize", Format: "{0}.innerWidth*{0}.innerHeight"},
		registry.MemberFacts(env.windowInner))

	decls := registry.Declarations()
	require.Len(t, decls, 17)
	for i := 1; i < len(decls); i++ {
		assert.Less(t, string(decls[i-1].Symbol), string(decls[i].Symbol))
	}
}

func TestRegistryDeclare(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	t.Run("merge_fields", func(t *testing.T) {
		registry := newTestRegistry(t,
			ScriptOnly(env.windowGetValue.Symbol),
			CallFormat(env.windowGetValue.Symbol, "get()"),
			Stateful(env.windowGetValue.Symbol))

		assert.Equal(t, MethodFacts{Format: "get()", ScriptOnly: true, Stateful: true},
			registry.MethodFacts(env.windowGetValue))
	})

	t.Run("flags_kept", func(t *testing.T) {
		registry := newTestRegistry(t,
			ScriptOnly(env.windowGetValue.Symbol),
			Stateful(env.windowGetValue.Symbol),
			CallFormat(env.windowGetValue.Symbol, "get()"),
			Declaration{Symbol: env.windowGetValue.Symbol})

		assert.Equal(t, MethodFacts{Format: "get()", ScriptOnly: true, Stateful: true},
			registry.MethodFacts(env.windowGetValue))
	})

	t.Run("later_wins", func(t *testing.T) {
		registry := newTestRegistry(t,
			DisplayName(env.window.Symbol, "a"),
			DisplayName(env.window.Symbol, "b"))

		assert.Equal(t, "b", registry.ClassFacts(env.window).Name)
	})

	t.Run("invalidates_resolved", func(t *testing.T) {
		registry := newTestRegistry(t)
		assert.Equal(t, "Window", registry.ClassFacts(env.window).Name)
		assert.False(t, registry.MethodFacts(env.windowGetValue).ScriptOnly)

		registry.Declare(DisplayName(env.window.Symbol, "window"), ScriptOnly(env.windowGetValue.Symbol))
		assert.Equal(t, "window", registry.ClassFacts(env.window).Name)
		assert.True(t, registry.MethodFacts(env.windowGetValue).ScriptOnly)
	})

	t.Run("declaration_copied", func(t *testing.T) {
		d := DisplayName(env.window.Symbol, "window")
		registry := newTestRegistry(t, d)
		*d.Name = "changed"

		assert.Equal(t, "window", registry.ClassFacts(env.window).Name)
	})
}

func TestRegistryConcurrent(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	registry := newTestRegistry(t, env.decls...)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "window", registry.ClassFacts(env.window).Name)
				assert.True(t, registry.MethodFacts(env.globalSmooth).Stateful)
				assert.Equal(t, "nativeProperty", registry.MemberFacts(env.windowRenamed).Name)
				if i == 0 && j%10 == 0 {
					registry.Declare(ScriptOnly(Symbol("extra." + strconv.Itoa(j))))
				}
			}
		}()
	}
	wg.Wait()
}

func TestCompilersShareRegistry(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	e := env.param()
	registry := newTestRegistry(t, env.decls...)

	a := NewCompiler(registry, Config{})
	b := NewCompiler(registry, Config{NullLiteral: "null"})
	body := Lambda(Call(nil, env.windowGetValue), e)

	s, err := a.Compile(body)
	require.NoError(t, err)
	assert.Equal(t, "(e)=>window.GetValue()", s)

	s, err = b.Compile(body)
	require.NoError(t, err)
	assert.Equal(t, "(e)=>window.GetValue()", s)
}
