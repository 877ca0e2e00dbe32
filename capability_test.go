package jshell

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int64
}

// exposeCounter binds a Counter type with Inc and Add methods and a Guarded
// global that rejects negative numbers.
func exposeCounter(t *testing.T, ns *Namespace) {
	t.Helper()
	require.NoError(t, ns.ExposeConstructor("Counter", func(c *Call) (interface{}, error) {
		start := int64(0)
		if c.Arg(0) != nil {
			var err error
			if start, err = c.Int(0); err != nil {
				return nil, err
			}
		}
		return &counter{n: start}, nil
	}, nil, 1))
	require.NoError(t, ns.ExposeMethod("Counter", "Inc", func(c *Call) (interface{}, error) {
		native, err := RequireHandleType(c.This, "Counter")
		if err != nil {
			return nil, err
		}
		cnt := native.(*counter)
		cnt.n++
		return cnt.n, nil
	}, 0))
	require.NoError(t, ns.ExposeMethod("Counter", "Add", func(c *Call) (interface{}, error) {
		native, err := RequireHandleType(c.This, "Counter")
		if err != nil {
			return nil, err
		}
		d, err := c.Int(0)
		if err != nil {
			return nil, err
		}
		cnt := native.(*counter)
		cnt.n += d
		return cnt.n, nil
	}, 1))
	require.NoError(t, ns.ExposeGlobalFunction("Guarded", func(c *Call) (interface{}, error) {
		v, err := c.Int(0)
		if err != nil {
			return nil, err
		}
		return RequireNonNegative(v)
	}, 1))
}

func newJsNamespace(t *testing.T) (*JsEngine, *Namespace) {
	t.Helper()
	e := NewJsEngine()
	t.Cleanup(e.Close)
	ns := NewNamespace(e)
	exposeCounter(t, ns)
	return e, ns
}

func runJs(t *testing.T, e Engine, src string) {
	t.Helper()
	require.NoError(t, RunSource(e, "test.js", []byte(src)))
}

func getGlobal(t *testing.T, e Engine, name string) interface{} {
	t.Helper()
	v, err := e.Get(name)
	require.NoError(t, err)
	return v
}

func TestNamespaceRecordsCapabilities(t *testing.T) {
	_, ns := newJsNamespace(t)
	require.NoError(t, ns.ExposeProperty("VERSION", "1.0"))

	c, ok := ns.Lookup("Counter", "Inc")
	require.True(t, ok)
	assert.Equal(t, InstanceMethod, c.Kind)
	assert.Equal(t, Builtin, c.Flags)
	assert.Equal(t, "Counter.prototype.Inc", c.QualifiedName())

	c, ok = ns.Lookup("", "Counter")
	require.True(t, ok)
	assert.Equal(t, ConstructorKind, c.Kind)
	assert.True(t, c.Flags.Has(DontEnum))
	assert.Equal(t, 1, c.Arity)

	_, ok = ns.Lookup("", "Inc")
	assert.False(t, ok)

	var names []string
	for _, c := range ns.Capabilities() {
		names = append(names, c.QualifiedName())
	}
	assert.Equal(t, []string{"Counter", "Counter.prototype.Add", "Counter.prototype.Inc", "Guarded", "VERSION"}, names)
}

func TestJsCounterScenario(t *testing.T) {
	e, _ := newJsNamespace(t)
	runJs(t, e, `
		var c = new Counter(1);
		var first = c.Inc();
		var second = c.Add(10);
		var fresh = new Counter().Inc();
	`)
	assert.EqualValues(t, 2, getGlobal(t, e, "first"))
	assert.EqualValues(t, 12, getGlobal(t, e, "second"))
	assert.EqualValues(t, 1, getGlobal(t, e, "fresh"))
}

func TestJsArity(t *testing.T) {
	e, _ := newJsNamespace(t)
	runJs(t, e, `
		var guarded = Guarded.length;
		var ctor = Counter.length;
		var inc = Counter.prototype.Inc.length;
		var add = Counter.prototype.Add.length;
	`)
	assert.EqualValues(t, 1, getGlobal(t, e, "guarded"))
	assert.EqualValues(t, 1, getGlobal(t, e, "ctor"))
	assert.EqualValues(t, 0, getGlobal(t, e, "inc"))
	assert.EqualValues(t, 1, getGlobal(t, e, "add"))
}

func TestJsMethodsAreBuiltin(t *testing.T) {
	e, _ := newJsNamespace(t)
	runJs(t, e, `
		var c = new Counter(1);
		var orig = Counter.prototype.Inc;
		Counter.prototype.Inc = function () { return -1; };
		var replaced = Counter.prototype.Inc !== orig;
		var deleted = delete Counter.prototype.Inc;
		var stillThere = typeof Counter.prototype.Inc === "function";
		var d = Object.getOwnPropertyDescriptor(Counter.prototype, "Inc");
		var writable = d.writable, enumerable = d.enumerable, configurable = d.configurable;
		var keys = [];
		for (var k in c) { keys.push(k); }
		var enumerated = keys.join(",");
		var works = c.Inc();
	`)
	assert.Equal(t, false, getGlobal(t, e, "replaced"))
	assert.Equal(t, false, getGlobal(t, e, "deleted"))
	assert.Equal(t, true, getGlobal(t, e, "stillThere"))
	assert.Equal(t, false, getGlobal(t, e, "writable"))
	assert.Equal(t, false, getGlobal(t, e, "enumerable"))
	assert.Equal(t, false, getGlobal(t, e, "configurable"))
	assert.Equal(t, "", getGlobal(t, e, "enumerated"))
	assert.EqualValues(t, 2, getGlobal(t, e, "works"))
}

func TestJsConstructorNotEnumerable(t *testing.T) {
	e, _ := newJsNamespace(t)
	runJs(t, e, `
		var globals = [];
		for (var g in this) { globals.push(g); }
		var hasCounter = globals.indexOf("Counter") >= 0;
		var hasGuarded = globals.indexOf("Guarded") >= 0;
	`)
	assert.Equal(t, false, getGlobal(t, e, "hasCounter"))
	assert.Equal(t, true, getGlobal(t, e, "hasGuarded"))
}

func TestJsErrorsAreCatchable(t *testing.T) {
	e, _ := newJsNamespace(t)
	runJs(t, e, `
		function caught(fn) {
			try { fn(); } catch (e) { return e.name + ": " + e.message; }
			return "no error";
		}
		var withoutNew = caught(function () { Counter(1); });
		var foreign = caught(function () { Counter.prototype.Inc.call({}); });
		var negative = caught(function () { Guarded(-5); });
		var notNumber = caught(function () { Guarded("x"); });
		var isRange = (function () {
			try { Guarded(-1); } catch (e) { return e instanceof RangeError; }
		})();
		var after = Guarded(3);
	`)
	assert.Equal(t, "TypeError: Counter must be called with new", getGlobal(t, e, "withoutNew"))
	assert.Equal(t, "TypeError: Counter expected", getGlobal(t, e, "foreign"))
	assert.Equal(t, "RangeError: Non negative number expected: -5", getGlobal(t, e, "negative"))
	assert.Equal(t, "TypeError: Number expected", getGlobal(t, e, "notNumber"))
	assert.Equal(t, true, getGlobal(t, e, "isRange"))
	assert.EqualValues(t, 3, getGlobal(t, e, "after"))
}

func TestJsUncaughtNativeError(t *testing.T) {
	e, _ := newJsNamespace(t)
	err := RunSource(e, "neg.js", []byte(`Guarded(-5);`))
	require.ErrorIs(t, err, ErrRuntime)
	assert.Contains(t, err.Error(), "Non negative number expected: -5")
}

func TestJsNativePanicBecomesError(t *testing.T) {
	e, ns := newJsNamespace(t)
	require.NoError(t, ns.ExposeGlobalFunction("Explode", func(c *Call) (interface{}, error) {
		panic("wiring fault")
	}, 0))
	runJs(t, e, `
		var msg;
		try { Explode(); } catch (e) { msg = e.message; }
	`)
	assert.Contains(t, getGlobal(t, e, "msg"), "wiring fault")
}

func TestJsShadowing(t *testing.T) {
	e, ns := newJsNamespace(t)
	require.NoError(t, ns.ExposeGlobalFunction("Guarded", func(c *Call) (interface{}, error) {
		return "replaced", nil
	}, 2))
	require.NoError(t, ns.ExposeMethod("Counter", "Inc", func(c *Call) (interface{}, error) {
		return "inc replaced", nil
	}, 0))
	runJs(t, e, `
		var g = Guarded(-5);
		var arity = Guarded.length;
		var inc = new Counter().Inc();
	`)
	assert.Equal(t, "replaced", getGlobal(t, e, "g"))
	assert.EqualValues(t, 2, getGlobal(t, e, "arity"))
	assert.Equal(t, "inc replaced", getGlobal(t, e, "inc"))

	c, ok := ns.Lookup("", "Guarded")
	require.True(t, ok)
	assert.Equal(t, 2, c.Arity)
}

func TestJsHandlesRoundTrip(t *testing.T) {
	e, ns := newJsNamespace(t)
	require.NoError(t, ns.ExposeGlobalFunction("Peek", func(c *Call) (interface{}, error) {
		native, err := RequireHandleType(c.Arg(0), "Counter")
		if err != nil {
			return nil, err
		}
		return native.(*counter).n, nil
	}, 1))
	runJs(t, e, `
		var c = new Counter(41);
		c.Inc();
		var peeked = Peek(c);
		var hidden = c.__handle__.h === undefined;
	`)
	assert.EqualValues(t, 42, getGlobal(t, e, "peeked"))
	assert.Equal(t, true, getGlobal(t, e, "hidden"))

	h, ok := getGlobal(t, e, "c").(*TypedHandle)
	require.True(t, ok)
	assert.Equal(t, "Counter", h.Tag())
	assert.Equal(t, "[object Counter]", h.String())
}

func TestMethodOnUnknownType(t *testing.T) {
	ns := NewNamespace(NewJsEngine())
	err := ns.ExposeMethod("Ghost", "Boo", func(c *Call) (interface{}, error) { return nil, nil }, 0)
	assert.ErrorIs(t, err, ErrUnknownType)
	_, ok := ns.Lookup("Ghost", "Boo")
	assert.False(t, ok)
}

// failingEngine refuses every binding, the way an engine out of memory would.
type failingEngine struct {
	Engine
}

func (failingEngine) DefineGlobal(string, interface{}, PropFlags) error {
	return errors.New("no space")
}

func (failingEngine) DefineFunction(string, Routine, int, PropFlags) error {
	return errors.New("no space")
}

func (failingEngine) DefineConstructor(string, Constructor, Finalizer, int) error {
	return errors.New("no space")
}

func TestBindFailureIsOutOfMemory(t *testing.T) {
	ns := NewNamespace(failingEngine{})

	err := ns.ExposeGlobalFunction("f", func(c *Call) (interface{}, error) { return nil, nil }, 0)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.EqualError(t, err, "Out of memory")

	assert.ErrorIs(t, ns.ExposeConstructor("T", nil, nil, 0), ErrOutOfMemory)
	assert.ErrorIs(t, ns.ExposeProperty("p", 1), ErrOutOfMemory)
	assert.Empty(t, ns.Capabilities())
}

func TestPropFlagsString(t *testing.T) {
	assert.Equal(t, "none", PropFlags(0).String())
	assert.Equal(t, "read-only|non-enumerable|non-configurable", Builtin.String())
	assert.Equal(t, "non-enumerable", DontEnum.String())
}

// exposeReserve binds Reserve(n), which records n in reserved only after the
// guard accepted it.
func exposeReserve(t *testing.T, ns *Namespace, reserved *int64) {
	t.Helper()
	*reserved = -1
	require.NoError(t, ns.ExposeGlobalFunction("Reserve", func(c *Call) (interface{}, error) {
		n, err := c.Int(0)
		if err != nil {
			return nil, err
		}
		if _, err := RequireNonNegative(n); err != nil {
			return nil, err
		}
		*reserved = n
		return n, nil
	}, 1))
}

func TestJsGuardStopsRoutine(t *testing.T) {
	e, ns := newJsNamespace(t)
	var reserved int64
	exposeReserve(t, ns, &reserved)

	runJs(t, e, `
		var msg;
		try { Reserve(-5); } catch (e) { msg = e.message; }
	`)
	assert.Equal(t, "Non negative number expected: -5", getGlobal(t, e, "msg"))
	assert.Equal(t, int64(-1), reserved)

	runJs(t, e, `Reserve(4);`)
	assert.Equal(t, int64(4), reserved)
}

// exposeTemp binds a Temp type whose finalizer counts collected instances.
func exposeTemp(t *testing.T, ns *Namespace, finalized *atomic.Int32) {
	t.Helper()
	require.NoError(t, ns.ExposeConstructor("Temp", func(c *Call) (interface{}, error) {
		return &counter{}, nil
	}, func(native interface{}) {
		if _, ok := native.(*counter); ok {
			finalized.Add(1)
		}
	}, 0))
}

func waitFinalized(t *testing.T, finalized *atomic.Int32) {
	t.Helper()
	require.Eventually(t, func() bool {
		runtime.GC()
		return finalized.Load() > 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestJsConstructorFinalizer(t *testing.T) {
	e := NewJsEngine()
	defer e.Close()
	ns := NewNamespace(e)
	var finalized atomic.Int32
	exposeTemp(t, ns, &finalized)

	runJs(t, e, `for (var i = 0; i < 200; i++) { new Temp(); }`)
	waitFinalized(t, &finalized)
}

func TestJsMethodKeepsFirstArity(t *testing.T) {
	e, ns := newJsNamespace(t)
	require.NoError(t, ns.ExposeMethod("Counter", "Inc", func(c *Call) (interface{}, error) {
		return "inc replaced", nil
	}, 3))

	c, ok := ns.Lookup("Counter", "Inc")
	require.True(t, ok)
	assert.Equal(t, 0, c.Arity)

	runJs(t, e, `var length = Counter.prototype.Inc.length; var inc = new Counter().Inc();`)
	assert.EqualValues(t, 0, getGlobal(t, e, "length"))
	assert.Equal(t, "inc replaced", getGlobal(t, e, "inc"))
}

func TestConstructorRebindDropsMethods(t *testing.T) {
	_, ns := newJsNamespace(t)
	require.NoError(t, ns.ExposeConstructor("Counter", func(c *Call) (interface{}, error) {
		return &counter{}, nil
	}, nil, 0))

	_, ok := ns.Lookup("Counter", "Inc")
	assert.False(t, ok)
}
