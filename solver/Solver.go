// Package solver implements functionality to wrap Gorgonia Solvers
// so that they can be described by name and hyperparameters in
// configuration files and stored agents.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
	Vanilla Type = "Vanilla"
)

// ParseType returns the solver Type named by s. Matching is case
// insensitive and the empty string names Adam.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Adam, nil
	}
	for _, t := range []Type{Adam, RMSProp, Vanilla} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("parseType: unknown solver %q", s)
}

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled and
// unmarshalled.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// New returns a solver of type t with default hyperparameters, the
// given step size, and gradients clipped to clip. No clipping is
// performed if clip <= 0.
func New(t Type, stepSize, clip float64) (*Solver, error) {
	switch t {
	case Adam:
		return NewAdam(stepSize, 1e-8, 0.9, 0.999, 1, clip)

	case RMSProp:
		return NewRMSProp(stepSize, 1e-8, 0.001, 0.999, 1, clip)

	case Vanilla:
		return NewVanilla(stepSize, 1, clip)

	default:
		return nil, fmt.Errorf("new: unknown solver type %v", t)
	}
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(Vanilla): reflect.TypeOf(VanillaConfig{}),
			string(Adam):    reflect.TypeOf(AdamConfig{}),
			string(RMSProp): reflect.TypeOf(RMSPropConfig{}),
		})
	if err != nil {
		return err
	}

	if !config.ValidType(typeName) {
		return fmt.Errorf("unmarshalJSON: invalid solver type %v for "+
			"configuration %T", typeName, config)
	}

	s.Type = typeName
	s.Config = config
	s.Solver = s.Config.Create()

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalConfig: missing field %v",
			typeJsonField)
	}
	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalConfig: unknown type %v",
			typeName)
	}
	value := reflect.New(ty)

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, value.Interface()); err != nil {
		return nil, "", err
	}

	return value.Elem().Interface().(Config), Type(typeName), nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}
