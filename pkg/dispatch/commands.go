package dispatch

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/grovestate/promised/pkg/log"
	"github.com/grovestate/promised/pkg/policy"
	"github.com/grovestate/promised/pkg/scope"
)

// CommandsActuator runs a promiser as a shell command via
// exec.CommandContext, bounded by Timeout. It is a demonstration
// actuator: the promise-language "commands" promise type this stands
// in for normally carries far more constraints (useshell, module,
// contain/umask, exec_owner); this actuator reads only "args".
type CommandsActuator struct {
	// Timeout bounds the execution of every command this actuator
	// runs; no promise constraint overrides it. NewCommandsActuator
	// sets 30 seconds, and a zero or negative value also means 30
	// seconds.
	Timeout time.Duration
}

// NewCommandsActuator returns a CommandsActuator with the default
// timeout.
func NewCommandsActuator() *CommandsActuator {
	return &CommandsActuator{Timeout: 30 * time.Second}
}

// Dispatch runs p.Promiser as a command, with the value of the "args"
// constraint (if any) appended as arguments. Reaching the timeout is
// reported as Timeout, any other run error (including a non-zero exit)
// as Fail; a zero exit is Repaired.
func (a *CommandsActuator) Dispatch(p policy.Promise, _ *scope.Store) PromiseResult {
	if p.Promiser == "" {
		log.WithComponent("dispatch.commands").Warn().Msg("commands promise has empty promiser")
		return Skipped
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var args []string
	if raw, ok := p.AttrString("args"); ok && raw != "" {
		args = strings.Fields(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Promiser, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	logger := log.WithComponent("dispatch.commands").With().
		Str("promiser", p.Promiser).
		Strs("args", args).
		Logger()

	if ctx.Err() == context.DeadlineExceeded {
		logger.Error().Msg("command exceeded its timeout")
		return Timeout
	}
	if err != nil {
		logger.Error().Err(err).Str("stderr", stderr.String()).Msg("command failed")
		return Fail
	}

	logger.Debug().Str("stdout", stdout.String()).Msg("command succeeded")
	return Repaired
}
