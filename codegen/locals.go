package codegen

import "github.com/chazu/sigma/types"

// LocalVariable is a named local slot.
type LocalVariable struct {
	Name string
	Slot int
	Type types.Type
}

// slotAllocator hands out slots for one method. Slots are never reused.
type slotAllocator struct {
	next int
	all  []*LocalVariable
}

// LocalScope is one level of a method's local-variable scope chain. All
// scopes of a method share one allocator.
type LocalScope struct {
	parent *LocalScope
	vars   map[string]*LocalVariable
	alloc  *slotAllocator
}

// NewMethodScope creates the root scope of a method whose first free slot
// is first.
func NewMethodScope(first int) *LocalScope {
	return &LocalScope{
		vars:  make(map[string]*LocalVariable),
		alloc: &slotAllocator{next: first},
	}
}

// Child creates a nested scope.
func (s *LocalScope) Child() *LocalScope {
	return &LocalScope{parent: s, vars: make(map[string]*LocalVariable), alloc: s.alloc}
}

// Declare allocates a slot for name. Doubles take two slots.
func (s *LocalScope) Declare(name string, typ types.Type) *LocalVariable {
	v := &LocalVariable{Name: name, Slot: s.alloc.next, Type: typ}
	s.alloc.next += types.SlotWidth(typ)
	s.alloc.all = append(s.alloc.all, v)
	s.vars[name] = v
	return v
}

// Lookup finds name in this scope or an enclosing one.
func (s *LocalScope) Lookup(name string) (*LocalVariable, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// MaxLocals is the number of slots allocated so far in the method.
func (s *LocalScope) MaxLocals() int {
	return s.alloc.next
}

// All returns every variable declared in the method, in allocation order.
func (s *LocalScope) All() []*LocalVariable {
	return s.alloc.all
}
