package dispatch

import (
	"testing"
	"time"

	"github.com/grovestate/promised/pkg/policy"
	"github.com/grovestate/promised/pkg/rval"
	"github.com/grovestate/promised/pkg/scope"
	"github.com/stretchr/testify/assert"
)

func TestCommandsActuatorSuccess(t *testing.T) {
	a := NewCommandsActuator()
	p := policy.Promise{Promiser: "true"}
	result := a.Dispatch(p, scope.NewStore())
	assert.Equal(t, Repaired, result)
}

func TestCommandsActuatorFailure(t *testing.T) {
	a := NewCommandsActuator()
	p := policy.Promise{Promiser: "false"}
	result := a.Dispatch(p, scope.NewStore())
	assert.Equal(t, Fail, result)
}

func TestCommandsActuatorEmptyPromiserSkipped(t *testing.T) {
	a := NewCommandsActuator()
	result := a.Dispatch(policy.Promise{}, scope.NewStore())
	assert.Equal(t, Skipped, result)
}

func TestCommandsActuatorTimeout(t *testing.T) {
	a := &CommandsActuator{Timeout: 10 * time.Millisecond}
	p := policy.Promise{
		Promiser: "sleep",
		Constraints: []policy.Constraint{
			{Lval: "args", Rval: rval.Scalar("1")},
		},
	}
	result := a.Dispatch(p, scope.NewStore())
	assert.Equal(t, Timeout, result)
}
