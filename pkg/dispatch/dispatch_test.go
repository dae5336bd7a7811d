package dispatch

import (
	"testing"

	"github.com/grovestate/promised/pkg/policy"
	"github.com/grovestate/promised/pkg/scope"
	"github.com/stretchr/testify/assert"
)

func TestDispatchUnregisteredTypeIsDenied(t *testing.T) {
	d := NewDispatcher()
	result := d.Dispatch(policy.Promise{TypeName: "nonexistent"}, scope.NewStore())
	assert.Equal(t, Denied, result)
}

func TestDispatchCallsRegisteredActuator(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Register("noop", ActuatorFunc(func(p policy.Promise, s *scope.Store) PromiseResult {
		called = true
		return NoOp
	}))

	result := d.Dispatch(policy.Promise{TypeName: "noop"}, scope.NewStore())
	assert.True(t, called)
	assert.Equal(t, NoOp, result)
}

func TestRegistered(t *testing.T) {
	d := NewDispatcher()
	assert.False(t, d.Registered("commands"))
	d.Register("commands", NewCommandsActuator())
	assert.True(t, d.Registered("commands"))
}

func TestPromiseResultString(t *testing.T) {
	cases := map[PromiseResult]string{
		Kept:        "kept",
		NoOp:        "noop",
		Repaired:    "repaired",
		Warn:        "warn",
		Fail:        "fail",
		Denied:      "denied",
		Timeout:     "timeout",
		Interrupted: "interrupted",
		Skipped:     "skipped",
	}
	for result, want := range cases {
		assert.Equal(t, want, result.String())
	}
}
