package device

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTopology() *Topology {
	return &Topology{Modules: []Module{
		{Number: 1, Type: ModuleExo8, Outputs: []string{"Keuken", "Hal", "", "", "", "", "", ""}},
		{Number: 3, Type: ModuleExo8, Outputs: []string{"", "Badkamer", "", "Gang", "", "", "", ""}},
		{Number: 5, Type: ModuleExoDim, Outputs: []string{"Salon", "", "", "", "", "", "", ""}},
		{Number: 7, Type: ModuleExoStore, Outputs: []string{"Living D", "Living M", "", "", "Bureau D", "", "", ""}},
	}}
}

func TestTopology_ShutterPairs(t *testing.T) {
	pairs := sampleTopology().ShutterPairs()
	require.Len(t, pairs, 2)

	assert.Equal(t, "Living", pairs[0].Name)
	assert.Equal(t, OutputRef{Module: 7, Output: 1}, pairs[0].Down)
	assert.Equal(t, OutputRef{Module: 7, Output: 2}, pairs[0].Up)

	assert.Equal(t, "Bureau", pairs[1].Name)
	assert.Equal(t, OutputRef{Module: 7, Output: 5}, pairs[1].Down)
	assert.Equal(t, OutputRef{Module: 7, Output: 6}, pairs[1].Up)
}

func TestTopology_Partner(t *testing.T) {
	topo := sampleTopology()

	partner, role, ok := topo.Partner(OutputRef{Module: 7, Output: 2})
	require.True(t, ok)
	assert.Equal(t, OutputRef{Module: 7, Output: 1}, partner)
	assert.Equal(t, RoleUp, role)

	_, _, ok = topo.Partner(OutputRef{Module: 3, Output: 2})
	assert.False(t, ok, "plain relays have no partner")
}

func TestTopology_Kind(t *testing.T) {
	topo := sampleTopology()
	assert.Equal(t, KindLight, topo.Kind(OutputRef{Module: 1, Output: 1}))
	assert.Equal(t, KindDimmer, topo.Kind(OutputRef{Module: 5, Output: 1}))
	assert.Equal(t, KindShutter, topo.Kind(OutputRef{Module: 7, Output: 1}))
	assert.Equal(t, "", topo.Kind(OutputRef{Module: 9, Output: 1}))
}

func TestTopology_Validate(t *testing.T) {
	require.NoError(t, sampleTopology().Validate())

	dup := &Topology{Modules: []Module{{Number: 1, Type: ModuleExo8}, {Number: 1, Type: ModuleExo8}}}
	assert.True(t, errors.Is(dup.Validate(), ErrValidation))

	unknown := &Topology{Modules: []Module{{Number: 2, Type: "ExoPlus"}}}
	assert.True(t, errors.Is(unknown.Validate(), ErrValidation))
}

func TestSnapshot_IsImmutable(t *testing.T) {
	src := map[int][]int{3: {0, 0, 0, 0, 0, 0, 0, 0}}
	snap := NewSnapshot(1, time.Unix(100, 0), time.Now(), src)

	src[3][1] = 255
	values, ok := snap.ModuleValues(3)
	require.True(t, ok)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0, 0}, values)

	values[0] = 42
	v, ok := snap.Value(OutputRef{Module: 3, Output: 1})
	require.True(t, ok)
	assert.Equal(t, 0, v)

	_, ok = snap.Value(OutputRef{Module: 3, Output: 9})
	assert.False(t, ok)
}
