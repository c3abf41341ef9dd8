package plugin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(_ context.Context, _ ScheduleContext, _ string, _ json.RawMessage) error { return nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry("1.4.0")

	err := reg.Register(Registration{Name: "greet", Handler: noopHandler, DefaultPermission: 1})
	require.NoError(t, err)

	got, ok := reg.Get("greet")
	require.True(t, ok)
	assert.Equal(t, 1, got.DefaultPermission)
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	reg := NewRegistry("1.4.0")
	require.NoError(t, reg.Register(Registration{Name: "greet", Handler: noopHandler}))

	err := reg.Register(Registration{Name: "greet", Handler: noopHandler})
	assert.Error(t, err)
}

func TestRegistry_List_Sorted(t *testing.T) {
	reg := NewRegistry("1.4.0")
	require.NoError(t, reg.Register(Registration{Name: "zeta", Handler: noopHandler}))
	require.NoError(t, reg.Register(Registration{Name: "alpha", Handler: noopHandler}))

	assert.Equal(t, []string{"alpha", "zeta"}, reg.List())
}

func TestRegistry_VersionConstraintSatisfied(t *testing.T) {
	reg := NewRegistry("2.1.0")
	err := reg.Register(Registration{Name: "greet", Handler: noopHandler, MinCoreVersion: ">= 2.0.0"})
	assert.NoError(t, err)
}

func TestRegistry_VersionConstraintRejected(t *testing.T) {
	reg := NewRegistry("1.0.0")
	err := reg.Register(Registration{Name: "greet", Handler: noopHandler, MinCoreVersion: ">= 2.0.0"})
	assert.Error(t, err)
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry("1.4.0")
	require.NoError(t, reg.Register(Registration{Name: "greet", Handler: noopHandler}))

	reg.Unregister("greet")

	_, ok := reg.Get("greet")
	assert.False(t, ok)
}

func TestRegistration_Validate(t *testing.T) {
	called := false
	reg := Registration{
		Name:    "greet",
		Handler: noopHandler,
		ParamsValidator: func(kwargs json.RawMessage) error {
			called = true
			return nil
		},
	}

	require.NoError(t, reg.Validate(json.RawMessage(`{}`)))
	assert.True(t, called)
}

func TestDefaultRegistry_PanicsOnDoubleSet(t *testing.T) {
	defer func() { defaultRegistry = nil }()

	SetDefaultRegistry(NewRegistry("1.0.0"))
	assert.Panics(t, func() {
		SetDefaultRegistry(NewRegistry("1.0.0"))
	})
}
