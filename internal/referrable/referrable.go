// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package referrable assigns stable numeric IDs to simulation objects and
// resolves weak references to them by ID.
package referrable

import (
	"sort"

	"github.com/samber/oops"
)

// Error codes for identity failures.
const (
	CodeNotFound   = "REFERRABLE_NOT_FOUND"
	CodeWrongType  = "REFERRABLE_WRONG_TYPE"
	CodeDisposed   = "REFERRABLE_DISPOSED"
	CodeIDConflict = "REFERRABLE_ID_CONFLICT"
	CodeInvalidID  = "REFERRABLE_INVALID_ID"
)

// ID identifies a referrable object within one galaxy. Zero means unassigned.
type ID int64

// NoID is the unassigned ID.
const NoID ID = 0

// Referrable is something that can be referred to by ID from the client side.
type Referrable interface {
	ReferrableID() ID
	SetReferrableID(id ID)
	IsDisposed() bool
	Dispose()
}

// Base is embeddable bookkeeping for Referrable implementations.
type Base struct {
	id       ID
	disposed bool
}

// ReferrableID returns the object's ID.
func (b *Base) ReferrableID() ID { return b.id }

// SetReferrableID sets the object's ID. Only a Registry should call this.
func (b *Base) SetReferrableID(id ID) { b.id = id }

// IsDisposed reports whether the object has been disposed.
func (b *Base) IsDisposed() bool { return b.disposed }

// Dispose marks the object as disposed.
func (b *Base) Dispose() { b.disposed = true }

// Registry is the arena owning every referrable object of a snapshot.
// It is not safe for concurrent use.
type Registry struct {
	objects map[ID]Referrable
	next    ID
}

// NewRegistry creates an empty registry. The first assigned ID is 1.
func NewRegistry() *Registry {
	return &Registry{
		objects: make(map[ID]Referrable),
		next:    1,
	}
}

// Register assigns an ID to obj and stores it.
// An object that already carries an ID keeps it if the ID is free.
// Registering the same object twice is a no-op.
func (r *Registry) Register(obj Referrable) (ID, error) {
	if obj == nil {
		return NoID, oops.Code(CodeInvalidID).Errorf("cannot register nil object")
	}
	id := obj.ReferrableID()
	if id < NoID {
		return NoID, oops.Code(CodeInvalidID).With("id", id).Errorf("negative ID %d", id)
	}
	if id != NoID {
		if existing, ok := r.objects[id]; ok {
			if existing == obj {
				return id, nil
			}
			return NoID, oops.Code(CodeIDConflict).With("id", id).Errorf("ID %d is already taken", id)
		}
		r.objects[id] = obj
		if id >= r.next {
			r.next = id + 1
		}
		return id, nil
	}
	id = r.allocate()
	obj.SetReferrableID(id)
	r.objects[id] = obj
	return id, nil
}

func (r *Registry) allocate() ID {
	for {
		id := r.next
		r.next++
		if _, taken := r.objects[id]; !taken {
			return id
		}
	}
}

// Lookup returns the object registered under id.
func (r *Registry) Lookup(id ID) (Referrable, bool) {
	obj, ok := r.objects[id]
	return obj, ok
}

// Resolve returns the object registered under id as a T.
func Resolve[T Referrable](r *Registry, id ID) (T, error) {
	var zero T
	obj, ok := r.objects[id]
	if !ok {
		return zero, oops.Code(CodeNotFound).With("id", id).Errorf("no object with ID %d", id)
	}
	if obj.IsDisposed() {
		return zero, oops.Code(CodeDisposed).With("id", id).Errorf("object %d has been disposed", id)
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, oops.Code(CodeWrongType).
			With("id", id).
			With("type", typeName(obj)).
			Errorf("object %d is a %s", id, typeName(obj))
	}
	return typed, nil
}

// Unregister removes the object with the given ID. Unknown IDs are ignored.
func (r *Registry) Unregister(id ID) {
	delete(r.objects, id)
}

// Reassign gives obj a fresh ID, as needed after copying an object that
// still carries its original's ID. The original keeps its registration.
func (r *Registry) Reassign(obj Referrable) (ID, error) {
	if obj == nil {
		return NoID, oops.Code(CodeInvalidID).Errorf("cannot reassign nil object")
	}
	if old := obj.ReferrableID(); old != NoID && r.objects[old] == obj {
		delete(r.objects, old)
	}
	obj.SetReferrableID(NoID)
	return r.Register(obj)
}

// Remap rewrites provisional (client-side) IDs to their authoritative values.
// Either every entry is applied or none is.
func (r *Registry) Remap(mapping map[ID]ID) error {
	if len(mapping) == 0 {
		return nil
	}
	targets := make(map[ID]ID, len(mapping))
	for from, to := range mapping {
		if to <= NoID {
			return oops.Code(CodeInvalidID).With("from", from).With("to", to).Errorf("cannot remap %d to invalid ID %d", from, to)
		}
		if _, ok := r.objects[from]; !ok {
			return oops.Code(CodeNotFound).With("id", from).Errorf("no object with ID %d to remap", from)
		}
		if prev, dup := targets[to]; dup {
			return oops.Code(CodeIDConflict).With("id", to).Errorf("IDs %d and %d both remap to %d", prev, from, to)
		}
		targets[to] = from
		if _, taken := r.objects[to]; taken {
			if _, moving := mapping[to]; !moving {
				return oops.Code(CodeIDConflict).With("id", to).Errorf("ID %d is already taken", to)
			}
		}
	}

	moved := make(map[ID]Referrable, len(mapping))
	for from := range mapping {
		moved[from] = r.objects[from]
		delete(r.objects, from)
	}
	for from, to := range mapping {
		obj := moved[from]
		obj.SetReferrableID(to)
		r.objects[to] = obj
		if to >= r.next {
			r.next = to + 1
		}
	}
	return nil
}

// CleanDisposed unregisters every disposed object and returns how many were removed.
func (r *Registry) CleanDisposed() int {
	n := 0
	for id, obj := range r.objects {
		if obj.IsDisposed() {
			delete(r.objects, id)
			n++
		}
	}
	return n
}

// Len returns the number of registered objects.
func (r *Registry) Len() int { return len(r.objects) }

// All returns the registered objects in ascending ID order.
func (r *Registry) All() []Referrable {
	ids := make([]ID, 0, len(r.objects))
	for id := range r.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Referrable, len(ids))
	for i, id := range ids {
		out[i] = r.objects[id]
	}
	return out
}
