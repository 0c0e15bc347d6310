// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/pulse/pkg/support/sets"
	"github.com/pkg/errors"
)

// Type of a parameter in the interchange format.
type Type int

const (
	TypeInvalid Type = iota
	TypeInteger
	TypeScalar
	TypeLogical
	TypeString
	TypeIntegers
)

var typeNames = map[Type]string{
	TypeInvalid:  "invalid",
	TypeInteger:  "integer",
	TypeScalar:   "scalar",
	TypeLogical:  "logical",
	TypeString:   "string",
	TypeIntegers: "integer[]",
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if name, found := typeNames[t]; found {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Parameter is a named, typed parameter of an operator in the interchange format.
type Parameter struct {
	Name       string
	Type       Type
	Default    any
	HasDefault bool
	Doc        string
}

// Int creates an integer parameter.
func Int(name string) Parameter { return Parameter{Name: name, Type: TypeInteger} }

// Scalar creates a floating point parameter.
func Scalar(name string) Parameter { return Parameter{Name: name, Type: TypeScalar} }

// Logical creates a boolean parameter.
func Logical(name string) Parameter { return Parameter{Name: name, Type: TypeLogical} }

// String creates a string parameter.
func String(name string) Parameter { return Parameter{Name: name, Type: TypeString} }

// Ints creates an integer list parameter.
func Ints(name string) Parameter { return Parameter{Name: name, Type: TypeIntegers} }

// WithDefault returns a copy of the parameter with a default value. It panics if the value can't be
// converted to the parameter's type.
func (p Parameter) WithDefault(value any) Parameter {
	converted, err := p.convert(value)
	if err != nil {
		exceptions.Panicf("parameter %q: invalid default: %v", p.Name, err)
	}
	p.Default = converted
	p.HasDefault = true
	return p
}

// WithDoc returns a copy of the parameter with a documentation string.
func (p Parameter) WithDoc(doc string) Parameter {
	p.Doc = doc
	return p
}

// convert the value to the canonical Go type of the parameter: int, float64, bool, string or []int.
// It accepts the loose types produced by decoders (e.g. YAML integers for scalars).
func (p Parameter) convert(value any) (any, error) {
	switch p.Type {
	case TypeInteger:
		return toInt(value)
	case TypeScalar:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		}
		if i, err := toInt(value); err == nil {
			return float64(i), nil
		}
	case TypeLogical:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case TypeString:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case TypeIntegers:
		switch v := value.(type) {
		case []int:
			return slices.Clone(v), nil
		case []int64:
			ints := make([]int, len(v))
			for ii, x := range v {
				ints[ii] = int(x)
			}
			return ints, nil
		case []any:
			ints := make([]int, len(v))
			for ii, x := range v {
				i, err := toInt(x)
				if err != nil {
					return nil, errors.WithMessagef(err, "element #%d", ii)
				}
				ints[ii] = i
			}
			return ints, nil
		}
	default:
		return nil, errors.Errorf("parameter has invalid type %s", p.Type)
	}
	return nil, errors.Errorf("value %v (%T) is not a valid %s", value, value, p.Type)
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		if v <= math.MaxInt {
			return int(v), nil
		}
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, errors.Errorf("value %v (%T) is not an integer", value, value)
}

// Arguments are the values of an invocation's parameters, resolved against the operator's schema:
// every parameter has a value of its canonical Go type.
type Arguments map[string]any

// ResolveArguments checks raw values against the schema, converts them to the canonical types and fills
// in defaults. Unknown or missing (without default) parameters are errors.
func ResolveArguments(schema []Parameter, raw map[string]any) (Arguments, error) {
	args := make(Arguments, len(schema))
	known := sets.Make[string](len(schema))
	for _, p := range schema {
		known.Insert(p.Name)
		value, found := raw[p.Name]
		if !found {
			if !p.HasDefault {
				return nil, errors.Errorf("missing value for parameter %q (%s)", p.Name, p.Type)
			}
			args[p.Name] = p.Default
			continue
		}
		converted, err := p.convert(value)
		if err != nil {
			return nil, errors.WithMessagef(err, "parameter %q", p.Name)
		}
		args[p.Name] = converted
	}
	if unknown := sets.FromKeys(raw).Sub(known); len(unknown) > 0 {
		return nil, errors.Errorf("unknown parameters %q", sets.Sorted(unknown))
	}
	return args, nil
}

func (args Arguments) get(name string) any {
	value, found := args[name]
	if !found {
		exceptions.Panicf("no argument named %q", name)
	}
	return value
}

// Int returns the named integer argument. It panics if it is missing or of a different type.
func (args Arguments) Int(name string) int {
	value, ok := args.get(name).(int)
	if !ok {
		exceptions.Panicf("argument %q is not an integer", name)
	}
	return value
}

// Float returns the named scalar argument. It panics if it is missing or of a different type.
func (args Arguments) Float(name string) float64 {
	value, ok := args.get(name).(float64)
	if !ok {
		exceptions.Panicf("argument %q is not a scalar", name)
	}
	return value
}

// Bool returns the named logical argument. It panics if it is missing or of a different type.
func (args Arguments) Bool(name string) bool {
	value, ok := args.get(name).(bool)
	if !ok {
		exceptions.Panicf("argument %q is not logical", name)
	}
	return value
}

// String returns the named string argument. It panics if it is missing or of a different type.
func (args Arguments) String(name string) string {
	value, ok := args.get(name).(string)
	if !ok {
		exceptions.Panicf("argument %q is not a string", name)
	}
	return value
}

// Ints returns the named integer list argument. It panics if it is missing or of a different type.
func (args Arguments) Ints(name string) []int {
	value, ok := args.get(name).([]int)
	if !ok {
		exceptions.Panicf("argument %q is not an integer list", name)
	}
	return value
}
