package judge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ardanlabs/bitsum/transform"
)

const (
	// DefaultTimeout is the per case time limit for external programs.
	DefaultTimeout = 2 * time.Second

	// waitDelay bounds how long Run waits for stdout and stderr to close
	// once the program exited or was killed. A child process holding the
	// pipes open does not keep the case running past its time limit.
	waitDelay = 100 * time.Millisecond
)

// ErrTimeLimit is returned by a Runner when a case ran out of time.
var ErrTimeLimit = errors.New("time limit exceeded")

// Output is what a solution produced for one input.
type Output struct {
	Stdout      string
	Stderr      string
	Elapsed     time.Duration
	CompileTime time.Duration // set by CompileRunner
	Memory      int64         // peak resident set in bytes, 0 if unknown
}

// Runner runs a solution on a single input.
type Runner interface {
	Run(ctx context.Context, input string) (Output, error)
}

// FuncRunner runs the in-process transform.
type FuncRunner struct{}

// Run evaluates input with transform.Eval.
func (FuncRunner) Run(ctx context.Context, input string) (Output, error) {
	start := time.Now()
	out, err := transform.Eval(input)
	if err != nil {
		return Output{Stderr: err.Error(), Elapsed: time.Since(start)}, err
	}
	return Output{Stdout: out, Elapsed: time.Since(start)}, nil
}

// ExecRunner runs an external program, feeding the input on its stdin.
type ExecRunner struct {
	Path    string
	Args    []string
	Timeout time.Duration // DefaultTimeout if zero
}

// Run starts the program and waits for it to exit or time out.
func (r *ExecRunner) Run(ctx context.Context, input string) (Output, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.Path, r.Args...)
	cmd.Stdin = bytes.NewBufferString(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	out := Output{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}
	if cmd.ProcessState != nil {
		out.Memory = maxRSS(cmd.ProcessState)
	}

	if err == nil {
		return out, nil
	}

	if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return out, ErrTimeLimit
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, fmt.Errorf("process finished with exit code %d: %w", exitErr.ExitCode(), err)
	}
	return out, err
}
