// Package conditions defines the canonical enumeration of dental condition
// classes the detector is trained on.
//
// The class index is the position in the enumeration and is what label files
// and the dataset manifest refer to, so the order must never change.
package conditions

import (
	"fmt"
	"strings"
)

// Class is a dental condition category.
type Class int

const (
	Cavity Class = iota
	Gingivitis
	Discoloration
	Plaque
	Tartar
	DeadTooth
	Chipped
	Misaligned
	HealthyTooth
	GumInflammation
)

var names = [...]string{
	"cavity",
	"gingivitis",
	"discoloration",
	"plaque",
	"tartar",
	"dead_tooth",
	"chipped",
	"misaligned",
	"healthy_tooth",
	"gum_inflammation",
}

// aliases maps alternate spellings seen in older tooling to canonical classes.
var aliases = map[string]Class{
	"healthy": HealthyTooth,
	"dead":    DeadTooth,
}

// String returns the canonical class name.
func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return names[c]
}

// Valid reports whether c is part of the enumeration.
func (c Class) Valid() bool {
	return c >= 0 && int(c) < len(names)
}

// All returns every class in index order.
func All() []Class {
	out := make([]Class, len(names))
	for i := range names {
		out[i] = Class(i)
	}
	return out
}

// Names returns the canonical class names in index order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names[:])
	return out
}

// FromIndex returns the class with label index i.
func FromIndex(i int) (Class, bool) {
	c := Class(i)
	return c, c.Valid()
}

// Count is the number of classes in the enumeration.
func Count() int {
	return len(names)
}

// Parse resolves a class name, accepting known aliases.
// The second return value is true when the name was an alias rather than the
// canonical spelling, so callers can flag the discrepancy.
func Parse(name string) (Class, bool, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if key == n {
			return Class(i), false, nil
		}
	}
	if c, ok := aliases[key]; ok {
		return c, true, nil
	}
	return 0, false, fmt.Errorf("unknown condition class: %q", name)
}
