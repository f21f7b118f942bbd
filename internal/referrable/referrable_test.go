// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package referrable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freee/freee/pkg/errutil"
)

type ship struct {
	Base
	name string
}

type planet struct {
	Base
}

func TestRegistry_RegisterAssignsSequentialIDs(t *testing.T) {
	reg := NewRegistry()
	a, b := &ship{name: "a"}, &ship{name: "b"}

	idA, err := reg.Register(a)
	require.NoError(t, err)
	idB, err := reg.Register(b)
	require.NoError(t, err)

	assert.Equal(t, ID(1), idA)
	assert.Equal(t, ID(2), idB)
	assert.Equal(t, idA, a.ReferrableID())
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_RegisterTwiceIsNoop(t *testing.T) {
	reg := NewRegistry()
	s := &ship{}
	first, err := reg.Register(s)
	require.NoError(t, err)
	second, err := reg.Register(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RegisterKeepsPresetID(t *testing.T) {
	reg := NewRegistry()
	s := &ship{}
	s.SetReferrableID(40)

	id, err := reg.Register(s)
	require.NoError(t, err)
	assert.Equal(t, ID(40), id)

	next, err := reg.Register(&ship{})
	require.NoError(t, err)
	assert.Equal(t, ID(41), next)
}

func TestRegistry_RegisterConflict(t *testing.T) {
	reg := NewRegistry()
	a := &ship{}
	_, err := reg.Register(a)
	require.NoError(t, err)

	b := &ship{}
	b.SetReferrableID(a.ReferrableID())
	_, err = reg.Register(b)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeIDConflict)
}

func TestResolve(t *testing.T) {
	reg := NewRegistry()
	s := &ship{name: "Enterprise"}
	_, err := reg.Register(s)
	require.NoError(t, err)

	got, err := Resolve[*ship](reg, s.ReferrableID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = Resolve[*planet](reg, s.ReferrableID())
	errutil.AssertErrorCode(t, err, CodeWrongType)

	_, err = Resolve[*ship](reg, 999)
	errutil.AssertErrorCode(t, err, CodeNotFound)

	s.Dispose()
	_, err = Resolve[*ship](reg, s.ReferrableID())
	errutil.AssertErrorCode(t, err, CodeDisposed)
}

func TestRegistry_Reassign(t *testing.T) {
	reg := NewRegistry()
	orig := &ship{name: "orig"}
	_, err := reg.Register(orig)
	require.NoError(t, err)

	clone := &ship{name: "clone"}
	clone.SetReferrableID(orig.ReferrableID())

	id, err := reg.Reassign(clone)
	require.NoError(t, err)
	assert.NotEqual(t, orig.ReferrableID(), id)

	got, ok := reg.Lookup(orig.ReferrableID())
	require.True(t, ok)
	assert.Same(t, orig, got)
	got, ok = reg.Lookup(id)
	require.True(t, ok)
	assert.Same(t, clone, got)
}

func TestRegistry_Remap(t *testing.T) {
	reg := NewRegistry()
	a, b := &ship{name: "a"}, &ship{name: "b"}
	_, _ = reg.Register(a)
	_, _ = reg.Register(b)

	require.NoError(t, reg.Remap(map[ID]ID{1: 100, 2: 1}))

	assert.Equal(t, ID(100), a.ReferrableID())
	assert.Equal(t, ID(1), b.ReferrableID())
	got, ok := reg.Lookup(100)
	require.True(t, ok)
	assert.Same(t, a, got)

	next, err := reg.Register(&ship{})
	require.NoError(t, err)
	assert.Equal(t, ID(101), next)
}

func TestRegistry_RemapIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		mapping map[ID]ID
		code    string
	}{
		{name: "target taken", mapping: map[ID]ID{1: 3, 2: 50}, code: CodeIDConflict},
		{name: "two sources one target", mapping: map[ID]ID{1: 60, 2: 60}, code: CodeIDConflict},
		{name: "unknown source", mapping: map[ID]ID{1: 70, 9: 71}, code: CodeNotFound},
		{name: "invalid target", mapping: map[ID]ID{1: 0}, code: CodeInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			objs := []*ship{{}, {}, {}}
			for _, o := range objs {
				_, err := reg.Register(o)
				require.NoError(t, err)
			}

			err := reg.Remap(tt.mapping)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
			for i, o := range objs {
				assert.Equal(t, ID(i+1), o.ReferrableID())
			}
		})
	}
}

func TestRegistry_CleanDisposedAndAll(t *testing.T) {
	reg := NewRegistry()
	a, b, c := &ship{}, &ship{}, &ship{}
	for _, o := range []*ship{a, b, c} {
		_, _ = reg.Register(o)
	}
	b.Dispose()

	assert.Equal(t, 1, reg.CleanDisposed())
	all := reg.All()
	require.Len(t, all, 2)
	assert.Same(t, a, all[0])
	assert.Same(t, c, all[1])
}

func TestRef(t *testing.T) {
	reg := NewRegistry()
	s := &ship{}
	_, _ = reg.Register(s)

	ref := NewRef(s)
	got, ok := ref.Resolve(reg)
	require.True(t, ok)
	assert.Same(t, s, got)

	var zero Ref[*ship]
	assert.True(t, zero.IsZero())
	_, ok = zero.Resolve(reg)
	assert.False(t, ok)

	moved := ref.Remap(map[ID]ID{s.ReferrableID(): 77})
	assert.Equal(t, ID(77), moved.ID())
	assert.Equal(t, ref, ref.Remap(map[ID]ID{5: 6}))

	s.Dispose()
	_, ok = ref.Resolve(reg)
	assert.False(t, ok)
}
