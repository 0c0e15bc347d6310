// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interchange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Version of the document format written by Dump.
const Version = "pulse-interchange/1"

// OpExternal is the operator name of the nodes declaring the model inputs.
const OpExternal = "external"

// Document is the serializable form of a typed model.
//
// Nodes are listed in dependency order: every node only refers to nodes listed before it. Outlets are
// referred to by the producing node's name, suffixed with ":slot" for slots other than 0.
type Document struct {
	Version    string         `yaml:"version"`
	Extensions []string       `yaml:"extensions,omitempty"`
	Inputs     []string       `yaml:"inputs"`
	Outputs    []string       `yaml:"outputs"`
	Nodes      []NodeDoc      `yaml:"nodes"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// NodeDoc is one node of a Document: an external input (Op == OpExternal, with DType and Shape) or an
// operator invocation.
type NodeDoc struct {
	Name   string         `yaml:"name"`
	Op     string         `yaml:"op"`
	Inputs []string       `yaml:"inputs,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`

	// DType and Shape of external inputs. Shape entries are either sizes or names of symbolic axes.
	DType string `yaml:"dtype,omitempty"`
	Shape []any  `yaml:"shape,omitempty"`
}

// Marshal encodes the document in YAML.
func Marshal(doc *Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding interchange document")
	}
	return data, nil
}

// Unmarshal decodes a YAML document.
func Unmarshal(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(err, "decoding interchange document")
	}
	if doc.Version != Version {
		return nil, errors.Errorf("unsupported interchange document version %q, expected %q", doc.Version, Version)
	}
	return doc, nil
}

// outletRef formats a reference to the outlet of the named node.
func outletRef(name string, slot int) string {
	if slot == 0 {
		return name
	}
	return fmt.Sprintf("%s:%d", name, slot)
}

// parseRef splits a reference into node name and slot.
func parseRef(ref string) (name string, slot int, err error) {
	pos := strings.LastIndexByte(ref, ':')
	if pos < 0 {
		return ref, 0, nil
	}
	slot, err = strconv.Atoi(ref[pos+1:])
	if err != nil || slot < 0 {
		return "", 0, errors.Errorf("invalid outlet reference %q", ref)
	}
	return ref[:pos], slot, nil
}

// refResolver resolves references to outlets of the nodes loaded so far.
type refResolver map[string][]graph.Outlet

func (r refResolver) resolve(ref string) (graph.Outlet, error) {
	name, slot, err := parseRef(ref)
	if err != nil {
		return graph.Outlet{}, err
	}
	outlets, found := r[name]
	if !found {
		return graph.Outlet{}, errors.Wrapf(graph.ErrDanglingReference, "reference %q to unknown node %q", ref, name)
	}
	if slot >= len(outlets) {
		return graph.Outlet{}, errors.Wrapf(graph.ErrUnknownOutlet, "reference %q: node %q has %d outputs", ref, name, len(outlets))
	}
	return outlets[slot], nil
}

func (r refResolver) resolveAll(refs []string) ([]graph.Outlet, error) {
	outlets := make([]graph.Outlet, len(refs))
	for ii, ref := range refs {
		var err error
		if outlets[ii], err = r.resolve(ref); err != nil {
			return nil, err
		}
	}
	return outlets, nil
}
