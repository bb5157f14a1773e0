package conditions

import (
	"fmt"
	"math/rand"
)

// Set is the subset of classes drawn into one dataset. It only limits which
// conditions appear: the label index of a class is always its position in the
// full enumeration, so every dataset shares one numbering.
type Set struct {
	classes []Class
	index   map[Class]struct{}
}

// DefaultSet returns the full enumeration in canonical order.
func DefaultSet() *Set {
	s, _ := NewSet(All())
	return s
}

// NewSet builds a set from classes, rejecting unknown or duplicate entries.
func NewSet(classes []Class) (*Set, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("class set cannot be empty")
	}
	s := &Set{
		classes: make([]Class, 0, len(classes)),
		index:   make(map[Class]struct{}, len(classes)),
	}
	for _, c := range classes {
		if !c.Valid() {
			return nil, fmt.Errorf("invalid class index %d", int(c))
		}
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("duplicate class %s", c)
		}
		s.index[c] = struct{}{}
		s.classes = append(s.classes, c)
	}
	return s, nil
}

// ParseSet builds a set from class names. Aliases are resolved and reported
// through the returned list so the caller can warn about them.
func ParseSet(list []string) (*Set, []string, error) {
	classes := make([]Class, 0, len(list))
	var aliased []string
	for _, n := range list {
		c, alias, err := Parse(n)
		if err != nil {
			return nil, nil, err
		}
		if alias {
			aliased = append(aliased, fmt.Sprintf("%s -> %s", n, c))
		}
		classes = append(classes, c)
	}
	s, err := NewSet(classes)
	if err != nil {
		return nil, nil, err
	}
	return s, aliased, nil
}

// Len returns the number of classes in the set.
func (s *Set) Len() int {
	return len(s.classes)
}

// Classes returns the classes in the order they were given.
func (s *Set) Classes() []Class {
	out := make([]Class, len(s.classes))
	copy(out, s.classes)
	return out
}

// Names returns the class names in the order they were given.
func (s *Set) Names() []string {
	out := make([]string, len(s.classes))
	for i, c := range s.classes {
		out[i] = c.String()
	}
	return out
}

// Contains reports whether c is drawn by the set.
func (s *Set) Contains(c Class) bool {
	_, ok := s.index[c]
	return ok
}

// Pick draws one class uniformly at random.
func (s *Set) Pick(rng *rand.Rand) Class {
	return s.classes[rng.Intn(len(s.classes))]
}

// Sample draws n distinct classes in random order. n is capped at Len.
func (s *Set) Sample(rng *rand.Rand, n int) []Class {
	if n > len(s.classes) {
		n = len(s.classes)
	}
	perm := rng.Perm(len(s.classes))
	out := make([]Class, n)
	for i := 0; i < n; i++ {
		out[i] = s.classes[perm[i]]
	}
	return out
}
