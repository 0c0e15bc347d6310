// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package registry implements operator registries: per-namespace tables that pair an operator kind
// with the function dumping it to the interchange format (Dumper), and an operator name with the
// parameter schema and function loading it back into a model (Primitive).
//
// Element-wise operators are registered in one call, pairing both directions: see
// Registry.RegisterElementWise and Registry.RegisterUnitElementWise.
//
// A Registry is populated once, at construction, and is read-only afterward: it can be shared by
// concurrent loads and dumps.
package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/support/sets"
	"github.com/gomlx/pulse/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrUnknownOperatorName is returned when loading an invocation whose name isn't registered.
var ErrUnknownOperatorName = errors.New("unknown operator name")

// Invocation is the serialized form of an operator: its registered name and named arguments.
// Inputs are referred to by the interchange document, not by the invocation.
type Invocation struct {
	Op   string
	Args map[string]any
}

// DumpFn converts a node of a typed model to an invocation.
type DumpFn func(model *ops.TypedModel, node *ops.TypedNode) (*Invocation, error)

// LoadFn creates the nodes implementing an invocation, with resolved arguments, and returns the
// outlets of the invocation's results.
type LoadFn func(b *Builder, args Arguments) ([]graph.Outlet, error)

// ElementWiseDumpFn returns the arguments of an element-wise mini-op.
type ElementWiseDumpFn func(mini ops.ElementWiseMiniOp) (map[string]any, error)

// ElementWiseLoadFn creates an element-wise mini-op from resolved arguments.
type ElementWiseLoadFn func(args Arguments) (ops.ElementWiseMiniOp, error)

// Primitive is a loadable operator: its name, parameter schema and load function.
type Primitive struct {
	Name   string
	Params []Parameter
	Load   LoadFn
}

// Registry holds the dumpers and primitives of one namespace.
type Registry struct {
	namespace  string
	dumpers    map[ops.Kind]DumpFn
	primitives map[string]*Primitive
	// pairs maps kinds to the primitive name their dumper emits, when known at registration.
	pairs map[ops.Kind]string
}

// New creates an empty registry for the given namespace, e.g. "tract_onnx".
func New(namespace string) *Registry {
	return &Registry{
		namespace:  namespace,
		dumpers:    make(map[ops.Kind]DumpFn),
		primitives: make(map[string]*Primitive),
		pairs:      make(map[ops.Kind]string),
	}
}

// Namespace of the registry.
func (r *Registry) Namespace() string { return r.namespace }

// RegisterPrimitive registers the name, parameter schema and load function of an operator.
// It panics if the name is already registered or if the schema has duplicate parameter names.
func (r *Registry) RegisterPrimitive(name string, params []Parameter, load LoadFn) {
	if name == "" || load == nil {
		exceptions.Panicf("registry %q: RegisterPrimitive requires a name and a load function", r.namespace)
	}
	if _, found := r.primitives[name]; found {
		exceptions.Panicf("registry %q: primitive %q registered twice", r.namespace, name)
	}
	seen := sets.Make[string](len(params))
	for _, p := range params {
		if !seen.Add(p.Name) {
			exceptions.Panicf("registry %q: primitive %q has parameter %q twice", r.namespace, name, p.Name)
		}
	}
	r.primitives[name] = &Primitive{Name: name, Params: slices.Clone(params), Load: load}
	klog.V(1).Infof("registry %q: registered primitive %q", r.namespace, name)
}

// RegisterDumper registers the dump function for an operator kind. There is at most one dumper per
// kind: a later registration replaces the previous one, with a warning.
func (r *Registry) RegisterDumper(kind ops.Kind, dump DumpFn) {
	if kind == "" || dump == nil {
		exceptions.Panicf("registry %q: RegisterDumper requires a kind and a dump function", r.namespace)
	}
	if _, found := r.dumpers[kind]; found {
		klog.Warningf("registry %q: dumper for kind %q replaced", r.namespace, kind)
	}
	r.dumpers[kind] = dump
	klog.V(1).Infof("registry %q: registered dumper for %q", r.namespace, kind)
}

// Pair declares that nodes of kind dump to invocations of the primitive name. Element-wise
// registrations are paired automatically, operators registered with separate RegisterDumper and
// RegisterPrimitive calls should be paired explicitly, so Check can verify them.
func (r *Registry) Pair(kind ops.Kind, name string) {
	r.pairs[kind] = name
}

// Check verifies that every dumper is paired with a registered primitive, so whatever is dumped can
// be loaded back. It is meant to be called once the registry is fully populated.
func (r *Registry) Check() error {
	var problems []string
	for _, kind := range r.Kinds() {
		name, found := r.pairs[kind]
		if !found {
			problems = append(problems, fmt.Sprintf("dumper for kind %q is not paired with a primitive", kind))
			continue
		}
		if _, found = r.primitives[name]; !found {
			problems = append(problems, fmt.Sprintf("dumper for kind %q is paired with unregistered primitive %q", kind, name))
		}
	}
	if len(problems) > 0 {
		return errors.Errorf("registry %q: %s", r.namespace, strings.Join(problems, "; "))
	}
	return nil
}

// RegisterElementWise registers both directions of an element-wise operator with parameters:
// nodes of the given kind dump to an invocation of name with the arguments returned by dump, and
// invocations of name load into an ops.ElementWise wrapping the mini-op returned by load.
func (r *Registry) RegisterElementWise(name string, kind ops.Kind, dump ElementWiseDumpFn,
	params []Parameter, load ElementWiseLoadFn) {
	if dump == nil || load == nil {
		exceptions.Panicf("registry %q: RegisterElementWise(%q) requires dump and load functions", r.namespace, name)
	}
	if _, found := r.primitives[name]; found {
		exceptions.Panicf("registry %q: primitive %q registered twice", r.namespace, name)
	}
	r.RegisterDumper(kind, func(_ *ops.TypedModel, node *ops.TypedNode) (*Invocation, error) {
		ew, ok := node.Op().(*ops.ElementWise)
		if !ok {
			return nil, errors.Errorf("node %q of kind %q is not element-wise (%T)", node.Name(), kind, node.Op())
		}
		args, err := dump(ew.Mini)
		if err != nil {
			return nil, err
		}
		return &Invocation{Op: name, Args: args}, nil
	})
	r.RegisterPrimitive(name, params, func(b *Builder, args Arguments) ([]graph.Outlet, error) {
		mini, err := load(args)
		if err != nil {
			return nil, err
		}
		return b.Wire(ops.NewElementWise(mini), b.Inputs()...)
	})
	r.Pair(kind, name)
}

// RegisterUnitElementWise registers an element-wise operator without parameters: mini is the
// only instance of its kind.
func (r *Registry) RegisterUnitElementWise(name string, mini ops.ElementWiseMiniOp) {
	r.RegisterElementWise(name, mini.Kind(),
		func(ops.ElementWiseMiniOp) (map[string]any, error) { return nil, nil },
		nil,
		func(Arguments) (ops.ElementWiseMiniOp, error) { return mini, nil })
}

// Dumper returns the dump function registered for kind.
func (r *Registry) Dumper(kind ops.Kind) (DumpFn, bool) {
	dump, found := r.dumpers[kind]
	return dump, found
}

// Primitive returns the primitive registered with the given name.
func (r *Registry) Primitive(name string) (*Primitive, bool) {
	p, found := r.primitives[name]
	return p, found
}

// PairedName returns the primitive name a kind dumps to, if it was paired.
func (r *Registry) PairedName(kind ops.Kind) (string, bool) {
	name, found := r.pairs[kind]
	return name, found
}

// Names returns the registered primitive names, sorted.
func (r *Registry) Names() []string {
	return xslices.SortedKeys(r.primitives)
}

// Kinds returns the kinds with a registered dumper, sorted.
func (r *Registry) Kinds() []ops.Kind {
	return xslices.SortedKeys(r.dumpers)
}

// DumpNode converts node with the dumper registered for its kind. If there is none it returns
// (nil, nil): it's up to the caller to decide whether a miss is an error.
func (r *Registry) DumpNode(model *ops.TypedModel, node *ops.TypedNode) (*Invocation, error) {
	dump, found := r.dumpers[node.Op().Kind()]
	if !found {
		return nil, nil
	}
	var inv *Invocation
	var dumpErr error
	err := exceptions.TryCatch[error](func() { inv, dumpErr = dump(model, node) })
	if err == nil {
		err = dumpErr
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "registry %q: dumping node %q (kind %s)", r.namespace, node.Name(), node.Op().Kind())
	}
	if inv == nil || inv.Op == "" {
		return nil, errors.Errorf("registry %q: dumper for kind %s returned no operator name for node %q",
			r.namespace, node.Op().Kind(), node.Name())
	}
	return inv, nil
}

// Load resolves the invocation's arguments against the primitive's schema and runs its load function
// with a Builder creating nodes in model, named after name, fed by inputs.
//
// It fails with ErrUnknownOperatorName if the invocation's name is not registered.
func (r *Registry) Load(model *ops.TypedModel, name string, inputs []graph.Outlet, inv *Invocation) ([]graph.Outlet, error) {
	p, found := r.primitives[inv.Op]
	if !found {
		return nil, errors.Wrapf(ErrUnknownOperatorName, "registry %q: %q", r.namespace, inv.Op)
	}
	args, err := ResolveArguments(p.Params, inv.Args)
	if err != nil {
		return nil, errors.WithMessagef(err, "registry %q: invocation of %q for node %q", r.namespace, inv.Op, name)
	}
	b := NewBuilder(model, name, inputs)
	var outlets []graph.Outlet
	var loadErr error
	err = exceptions.TryCatch[error](func() { outlets, loadErr = p.Load(b, args) })
	if err == nil {
		err = loadErr
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "registry %q: loading %q for node %q", r.namespace, inv.Op, name)
	}
	return outlets, nil
}
