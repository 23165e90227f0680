package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/specialistvlad/computesim/internal/computation"
	"github.com/specialistvlad/computesim/internal/handlers"
)

// ErrStepFailed wraps every failure of a step invocation.
var ErrStepFailed = errors.New("pipeline step failed")

// Runner executes one step invocation.
type Runner interface {
	Run(ctx context.Context, comp *computation.Computation, step *computation.Step, req handlers.Request) (handlers.Response, error)
}

// CommandRunner spawns the step's command in the computation directory,
// writes the request to its stdin and decodes the response from its stdout.
type CommandRunner struct{}

// Run implements Runner.
func (CommandRunner) Run(ctx context.Context, comp *computation.Computation, step *computation.Step, req handlers.Request) (handlers.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return handlers.Response{}, fmt.Errorf("%w: encode request: %v", ErrStepFailed, err)
	}

	cmd := exec.CommandContext(ctx, step.Command, step.Args...)
	cmd.Dir = comp.Dir
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return handlers.Response{}, fmt.Errorf("%w: %s: %v: %s", ErrStepFailed, step.Command, err, strings.TrimSpace(stderr.String()))
	}

	var resp handlers.Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return handlers.Response{}, fmt.Errorf("%w: %s wrote invalid JSON: %v", ErrStepFailed, step.Command, err)
	}
	if resp.Output == nil {
		return handlers.Response{}, fmt.Errorf("%w: %s returned no output", ErrStepFailed, step.Command)
	}
	return resp, nil
}

// FunctionRunner calls handlers registered in-process.
type FunctionRunner struct {
	Handlers *handlers.Handlers
}

// Run implements Runner.
func (r FunctionRunner) Run(ctx context.Context, _ *computation.Computation, step *computation.Step, req handlers.Request) (handlers.Response, error) {
	if r.Handlers == nil {
		return handlers.Response{}, fmt.Errorf("%w: no handlers configured for %s", ErrStepFailed, step.Handler)
	}
	fn, ok := r.Handlers.Handler(step.Handler)
	if !ok {
		return handlers.Response{}, fmt.Errorf("%w: handler %q is not registered (known: %v)", ErrStepFailed, step.Handler, r.Handlers.Names())
	}
	resp, err := fn(ctx, req)
	if err != nil {
		return handlers.Response{}, fmt.Errorf("%w: %s: %v", ErrStepFailed, step.Handler, err)
	}
	if resp.Output == nil {
		return handlers.Response{}, fmt.Errorf("%w: %s returned no output", ErrStepFailed, step.Handler)
	}
	return resp, nil
}
