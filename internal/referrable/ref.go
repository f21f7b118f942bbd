// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package referrable

import "fmt"

// Ref is a weak reference to a referrable object, stored as its ID.
// The zero Ref refers to nothing.
type Ref[T Referrable] struct {
	id ID
}

// NewRef creates a reference to obj. obj must already be registered.
func NewRef[T Referrable](obj T) Ref[T] {
	return Ref[T]{id: obj.ReferrableID()}
}

// RefTo creates a reference from a bare ID.
func RefTo[T Referrable](id ID) Ref[T] {
	return Ref[T]{id: id}
}

// ID returns the referenced ID.
func (r Ref[T]) ID() ID { return r.id }

// IsZero reports whether the reference points at nothing.
func (r Ref[T]) IsZero() bool { return r.id == NoID }

// Resolve looks the reference up. Disposed, missing and mistyped targets
// resolve to absent.
func (r Ref[T]) Resolve(reg *Registry) (T, bool) {
	var zero T
	if r.id == NoID || reg == nil {
		return zero, false
	}
	obj, err := Resolve[T](reg, r.id)
	if err != nil {
		return zero, false
	}
	return obj, true
}

// Remap returns the reference rewritten through mapping, or unchanged if its
// ID is not a key of mapping.
func (r Ref[T]) Remap(mapping map[ID]ID) Ref[T] {
	if to, ok := mapping[r.id]; ok {
		return Ref[T]{id: to}
	}
	return r
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
