package jshell

import (
	"errors"
	"sort"
	"strings"
)

// PropFlags controls the visibility of a bound property.
type PropFlags uint8

const (
	ReadOnly PropFlags = 1 << iota
	DontEnum
	DontConf

	// Builtin is the policy for methods installed on native prototypes.
	Builtin = ReadOnly | DontEnum | DontConf
)

func (f PropFlags) Has(flag PropFlags) bool {
	return f&flag == flag
}

func (f PropFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f.Has(ReadOnly) {
		parts = append(parts, "read-only")
	}
	if f.Has(DontEnum) {
		parts = append(parts, "non-enumerable")
	}
	if f.Has(DontConf) {
		parts = append(parts, "non-configurable")
	}
	return strings.Join(parts, "|")
}

// CapabilityKind is how a capability appears to script code.
type CapabilityKind string

const (
	GlobalFunction CapabilityKind = "global-function"
	ConstructorKind CapabilityKind = "constructor"
	InstanceMethod CapabilityKind = "instance-method"
	GlobalProperty CapabilityKind = "property"
)

// globalScope is the scope of everything bound directly on the global object.
const globalScope = ""

// ExposedCapability records one binding made through a Namespace. Arity is
// advisory.
type ExposedCapability struct {
	Scope string
	Name  string
	Arity int
	Kind  CapabilityKind
	Flags PropFlags
}

// QualifiedName is Name for globals and Scope.prototype.Name for methods.
func (c ExposedCapability) QualifiedName() string {
	if c.Scope == globalScope {
		return c.Name
	}
	return c.Scope + ".prototype." + c.Name
}

type capKey struct {
	scope string
	name  string
}

// Namespace installs native routines into an engine under a fixed naming and
// visibility contract. Binding an existing name again replaces the previous
// binding.
type Namespace struct {
	engine Engine
	caps   map[capKey]ExposedCapability
}

func NewNamespace(e Engine) *Namespace {
	return &Namespace{
		engine: e,
		caps:   make(map[capKey]ExposedCapability),
	}
}

// Engine returns the engine the namespace binds into.
func (n *Namespace) Engine() Engine {
	return n.engine
}

// ExposeGlobalFunction binds fn as a callable global advertising arity
// parameters.
func (n *Namespace) ExposeGlobalFunction(name string, fn Routine, arity int) error {
	if err := n.engine.DefineFunction(name, fn, arity, 0); err != nil {
		return bindError(err)
	}
	n.record(ExposedCapability{Name: name, Arity: arity, Kind: GlobalFunction})
	return nil
}

// ExposeConstructor binds a non-enumerable global constructor for typeName.
// Instances carry a handle tagged typeName; fin is attached to that handle.
func (n *Namespace) ExposeConstructor(typeName string, ctor Constructor, fin Finalizer, arity int) error {
	if err := n.engine.DefineConstructor(typeName, ctor, fin, arity); err != nil {
		return bindError(err)
	}
	n.forgetMethods(typeName)
	n.record(ExposedCapability{Name: typeName, Arity: arity, Kind: ConstructorKind, Flags: DontEnum})
	return nil
}

// ExposeMethod installs fn on typeName's prototype as read-only,
// non-enumerable and non-configurable. Exposing a method again swaps the
// routine only; the method keeps the arity it was first exposed with.
func (n *Namespace) ExposeMethod(typeName, methodName string, fn Routine, arity int) error {
	if err := n.engine.DefineMethod(typeName, methodName, fn, arity, Builtin); err != nil {
		return bindError(err)
	}
	if prev, ok := n.Lookup(typeName, methodName); ok {
		arity = prev.Arity
	}
	n.record(ExposedCapability{Scope: typeName, Name: methodName, Arity: arity, Kind: InstanceMethod, Flags: Builtin})
	return nil
}

// ExposeProperty binds a plain global value such as a version number or a
// configured path.
func (n *Namespace) ExposeProperty(name string, value interface{}) error {
	if err := n.engine.DefineGlobal(name, value, 0); err != nil {
		return bindError(err)
	}
	n.record(ExposedCapability{Name: name, Kind: GlobalProperty})
	return nil
}

// Lookup returns the capability bound under scope and name. Use an empty scope
// for globals.
func (n *Namespace) Lookup(scope, name string) (ExposedCapability, bool) {
	c, ok := n.caps[capKey{scope: scope, name: name}]
	return c, ok
}

// Capabilities lists every binding sorted by qualified name.
func (n *Namespace) Capabilities() []ExposedCapability {
	out := make([]ExposedCapability, 0, len(n.caps))
	for _, c := range n.caps {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName() < out[j].QualifiedName()
	})
	return out
}

func (n *Namespace) record(c ExposedCapability) {
	n.caps[capKey{scope: c.Scope, name: c.Name}] = c
}

// forgetMethods drops the methods of typeName; a new constructor starts with
// a fresh prototype.
func (n *Namespace) forgetMethods(typeName string) {
	for k := range n.caps {
		if k.scope == typeName {
			delete(n.caps, k)
		}
	}
}

func (n *Namespace) names() map[string]bool {
	set := make(map[string]bool, len(n.caps))
	for _, c := range n.caps {
		set[c.QualifiedName()] = true
	}
	return set
}

// namesSince lists, sorted, the qualified names bound after before was taken.
func (n *Namespace) namesSince(before map[string]bool) []string {
	var out []string
	for _, c := range n.Capabilities() {
		if !before[c.QualifiedName()] {
			out = append(out, c.QualifiedName())
		}
	}
	return out
}

// bindError maps an engine failure while binding onto OutOfMemory. Unknown
// types are programming errors and pass through.
func bindError(err error) error {
	var se *ScriptError
	if errors.As(err, &se) || errors.Is(err, ErrUnknownType) {
		return err
	}
	return OutOfMemory(err)
}
