// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package interchange serializes typed models to and from a YAML document, using operator registries
// to dump and load every node that isn't a model input.
//
// A Framework holds an ordered list of registries: when dumping, the first registry with a dumper
// for the node's operator kind is used; when loading, the first registry with a primitive of the
// invocation's name. The namespaces of the registries used by a document are listed in its
// extensions, and loading fails if one of them is missing from the Framework.
package interchange

import (
	"os"
	"slices"

	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/registry"
	"github.com/gomlx/pulse/pkg/core/shapes"
	"github.com/gomlx/pulse/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ErrNoDumper is returned when dumping a node whose operator kind has no dumper in any registry.
	ErrNoDumper = errors.New("no dumper for operator")

	// ErrUnpairedDumper is returned when a dumper emits an invocation that no registry can load.
	ErrUnpairedDumper = errors.New("dumped operator can't be loaded back")
)

// Framework dumps and loads models using its registries.
type Framework struct {
	Registries []*registry.Registry
}

// New creates a Framework with the given registries.
func New(registries ...*registry.Registry) *Framework {
	return &Framework{Registries: slices.Clone(registries)}
}

// WithRegistry appends a registry and returns the framework, so calls can be chained.
func (f *Framework) WithRegistry(r *registry.Registry) *Framework {
	f.Registries = append(f.Registries, r)
	return f
}

// registryFor returns the first registry with a primitive with the given name.
func (f *Framework) registryFor(name string) *registry.Registry {
	for _, r := range f.Registries {
		if _, found := r.Primitive(name); found {
			return r
		}
	}
	return nil
}

// Dump converts a typed model into a Document.
func (f *Framework) Dump(model *ops.TypedModel) (*Document, error) {
	if err := model.Validate(); err != nil {
		return nil, errors.WithMessage(err, "dumping invalid model")
	}
	order, err := model.EvalOrder()
	if err != nil {
		return nil, err
	}
	doc := &Document{Version: Version, Properties: make(map[string]any)}
	var extensions []string
	for _, id := range order {
		node := model.Node(id)
		inputs := make([]string, node.NumInputs())
		for ii, input := range node.Inputs() {
			inputs[ii] = outletRef(model.Node(input.Node).Name(), input.Slot)
		}
		if ops.IsSource(node.Op()) {
			fact := node.OutputFacts()[0]
			doc.Nodes = append(doc.Nodes, NodeDoc{
				Name:  node.Name(),
				Op:    OpExternal,
				DType: fact.DType().String(),
				Shape: shapeToDoc(fact.Shape()),
			})
			continue
		}
		inv, err := f.dumpNode(model, node)
		if err != nil {
			return nil, err
		}
		r := f.registryFor(inv.Op)
		if r == nil {
			return nil, errors.Wrapf(ErrUnpairedDumper, "node %q (kind %s) dumped as %q",
				node.Name(), node.Op().Kind(), inv.Op)
		}
		if !slices.Contains(extensions, r.Namespace()) {
			extensions = append(extensions, r.Namespace())
		}
		doc.Nodes = append(doc.Nodes, NodeDoc{Name: node.Name(), Op: inv.Op, Inputs: inputs, Args: inv.Args})
	}
	for _, outlet := range model.InputOutlets() {
		doc.Inputs = append(doc.Inputs, outletRef(model.Node(outlet.Node).Name(), outlet.Slot))
	}
	for _, outlet := range model.OutputOutlets() {
		doc.Outputs = append(doc.Outputs, outletRef(model.Node(outlet.Node).Name(), outlet.Slot))
	}
	for name, value := range model.Properties() {
		doc.Properties[name] = value
	}
	doc.Extensions = extensions
	klog.V(1).Infof("dumped model with %d nodes, extensions %v", len(doc.Nodes), extensions)
	return doc, nil
}

func (f *Framework) dumpNode(model *ops.TypedModel, node *ops.TypedNode) (*registry.Invocation, error) {
	for _, r := range f.Registries {
		inv, err := r.DumpNode(model, node)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			return inv, nil
		}
	}
	return nil, errors.Wrapf(ErrNoDumper, "node %q (kind %s)", node.Name(), node.Op().Kind())
}

// Load converts a Document into a typed model.
func (f *Framework) Load(doc *Document) (*ops.TypedModel, error) {
	for _, extension := range doc.Extensions {
		if !slices.ContainsFunc(f.Registries, func(r *registry.Registry) bool { return r.Namespace() == extension }) {
			return nil, errors.Errorf("document requires extension %q, not available in the framework", extension)
		}
	}
	model := ops.NewTypedModel()
	// Loaders wiring more than one node derive names with UniqueName: keep them off later nodes.
	model.ReserveNames(xslices.Map(doc.Nodes, func(nodeDoc NodeDoc) string { return nodeDoc.Name })...)
	refs := make(refResolver, len(doc.Nodes))
	for _, nodeDoc := range doc.Nodes {
		if _, found := refs[nodeDoc.Name]; found {
			return nil, errors.Wrapf(graph.ErrDuplicateName, "node %q", nodeDoc.Name)
		}
		if nodeDoc.Op == OpExternal {
			fact, err := factFromDoc(nodeDoc)
			if err != nil {
				return nil, err
			}
			outlet, err := model.AddSource(nodeDoc.Name, fact)
			if err != nil {
				return nil, err
			}
			refs[nodeDoc.Name] = model.Node(outlet.Node).Outlets()
			continue
		}
		inputs, err := refs.resolveAll(nodeDoc.Inputs)
		if err != nil {
			return nil, errors.WithMessagef(err, "node %q", nodeDoc.Name)
		}
		r := f.registryFor(nodeDoc.Op)
		if r == nil {
			return nil, errors.Wrapf(registry.ErrUnknownOperatorName, "node %q: operator %q", nodeDoc.Name, nodeDoc.Op)
		}
		outlets, err := r.Load(model, nodeDoc.Name, inputs, &registry.Invocation{Op: nodeDoc.Op, Args: nodeDoc.Args})
		if err != nil {
			return nil, err
		}
		refs[nodeDoc.Name] = outlets
	}
	inputs, err := refs.resolveAll(doc.Inputs)
	if err != nil {
		return nil, errors.WithMessage(err, "model inputs")
	}
	if err = model.SetInputOutlets(inputs...); err != nil {
		return nil, err
	}
	outputs, err := refs.resolveAll(doc.Outputs)
	if err != nil {
		return nil, errors.WithMessage(err, "model outputs")
	}
	if err = model.SetOutputOutlets(outputs...); err != nil {
		return nil, err
	}
	for name, value := range doc.Properties {
		model.SetProperty(name, value)
	}
	if err = model.Validate(); err != nil {
		return nil, errors.WithMessage(err, "loaded model is invalid")
	}
	return model, nil
}

// WriteFile dumps the model and writes it to path.
func (f *Framework) WriteFile(path string, model *ops.TypedModel) error {
	doc, err := f.Dump(model)
	if err != nil {
		return err
	}
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing model to %q", path)
	}
	return nil
}

// ReadFile reads the document in path and loads it.
func (f *Framework) ReadFile(path string) (*ops.TypedModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading model from %q", path)
	}
	doc, err := Unmarshal(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "file %q", path)
	}
	return f.Load(doc)
}

func shapeToDoc(shape shapes.Shape) []any {
	dims := make([]any, shape.Rank())
	for axis := range dims {
		if name := shape.AxisName(axis); name != "" {
			dims[axis] = name
		} else {
			dims[axis] = shape.Dim(axis)
		}
	}
	return dims
}

func factFromDoc(nodeDoc NodeDoc) (fact facts.Static, err error) {
	dtype, found := shapes.ParseDType(nodeDoc.DType)
	if !found {
		err = errors.Errorf("external %q: unknown dtype %q", nodeDoc.Name, nodeDoc.DType)
		return
	}
	for axis, dim := range nodeDoc.Shape {
		switch d := dim.(type) {
		case int:
			if d < 0 && d != shapes.DimDynamic {
				err = errors.Errorf("external %q: invalid dimension %d for axis %d", nodeDoc.Name, d, axis)
				return
			}
		case string:
			if d == "" {
				err = errors.Errorf("external %q: empty symbol for axis %d", nodeDoc.Name, axis)
				return
			}
		default:
			err = errors.Errorf("external %q: axis %d must be a size or a symbol, got %v (%T)", nodeDoc.Name, axis, dim, dim)
			return
		}
	}
	return facts.MakeStatic(dtype, nodeDoc.Shape...), nil
}
