// Package config loads the diagram, its parameters and the process
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Params holds parameter values by component and parameter name. Lookups fall
// back to a default when the value is missing or has the wrong type.
type Params map[string]map[string]any

// LoadParams reads a params file. YAML and JSON are both accepted.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params file: %w", err)
	}

	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse params file %s: %w", path, err)
	}

	if p == nil {
		p = Params{}
	}

	return p, nil
}

// Set assigns a value.
func (p Params) Set(component, name string, value any) {
	c, ok := p[component]
	if !ok {
		c = make(map[string]any)
		p[component] = c
	}

	c[name] = value
}

// Merge copies every value of other into p, replacing existing ones.
func (p Params) Merge(other Params) {
	for component, values := range other {
		for name, v := range values {
			p.Set(component, name, v)
		}
	}
}

func (p Params) lookup(component, name string) (any, bool) {
	c, ok := p[component]
	if !ok {
		return nil, false
	}

	v, ok := c[name]

	return v, ok
}

// Float returns a numeric parameter.
func (p Params) Float(component, name string, def float64) float64 {
	v, ok := p.lookup(component, name)
	if !ok {
		return def
	}

	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}

	return def
}

// Bool returns a boolean parameter.
func (p Params) Bool(component, name string, def bool) bool {
	v, ok := p.lookup(component, name)
	if !ok {
		return def
	}

	switch x := v.(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
	}

	return def
}

// String returns a string parameter.
func (p Params) String(component, name string, def string) string {
	v, ok := p.lookup(component, name)
	if !ok {
		return def
	}

	if s, ok := v.(string); ok {
		return s
	}

	return def
}
