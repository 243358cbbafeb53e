package types

import "sort"

// Registry maps type names to canonical Type values.
type Registry struct {
	types map[string]Type
}

// NewRegistry creates a registry holding the built-in types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]Type)}
	for _, t := range []Type{Int, Double, Float, Boolean, String, VoidT} {
		r.types[t.Name()] = t
	}
	return r
}

// Resolve returns the type named name, or ErrorT if none is registered.
func (r *Registry) Resolve(name string) Type {
	if t, ok := r.types[name]; ok {
		return t
	}
	return ErrorT
}

// IsRegistered reports whether name resolves to a type.
func (r *Registry) IsRegistered(name string) bool {
	_, ok := r.types[name]
	return ok
}

// RegisterClass adds a class type. Registering an existing class name
// returns the existing type; built-in names are never replaced.
func (r *Registry) RegisterClass(name string) *Class {
	if t, ok := r.types[name]; ok {
		if c, ok := t.(*Class); ok {
			return c
		}
		return nil
	}
	c := &Class{name: name}
	r.types[name] = c
	return c
}

// Classes returns the registered class names, sorted, String included.
func (r *Registry) Classes() []string {
	var names []string
	for name, t := range r.types {
		if _, ok := t.(*Class); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
