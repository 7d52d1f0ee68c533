// Package judge checks a bitsum solution against a set of cases.
package judge

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ardanlabs/bitsum/cases"
)

// Status is the verdict for a single case.
type Status string

const (
	Passed       Status = "Passed"
	Failed       Status = "Failed"
	RuntimeError Status = "Runtime Error"
	TimeLimit    Status = "Time Limit"
)

// Result is the outcome of running one case. Test is 1 based.
type Result struct {
	Test        int
	Status      Status
	Input       string
	Output      string
	Expected    string
	Elapsed     time.Duration
	CompileTime time.Duration
	Memory      int64 // peak resident set in bytes
	Error       string
}

// Judge runs cases through a Runner.
type Judge struct {
	Runner   Runner
	Workers  int          // runtime.NumCPU() if zero
	Progress func(Result) // called once per finished case, not concurrently
	Logger   *zap.Logger  // no logging if nil
}

// Check runs all cases and returns their results in case order. If the
// Runner is a Compiler it is compiled first. Solution failures, build
// failures included, are reported in the results. An error is returned only
// if the runner could not be set up or ctx is done before all cases ran.
func (j *Judge) Check(ctx context.Context, cs []cases.Case) ([]Result, error) {
	log := j.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if c, ok := j.Runner.(Compiler); ok {
		if err := c.Compile(ctx); err != nil {
			return nil, err
		}
	}

	workers := j.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(cs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range cs {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out, err := j.Runner.Run(ctx, c.Input)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			r := evaluate(i+1, c, out, err)
			results[i] = r
			log.Debug("case done",
				zap.Int("test", r.Test),
				zap.String("status", string(r.Status)),
				zap.String("expected", r.Expected),
				zap.String("output", r.Output),
				zap.Duration("elapsed", r.Elapsed),
				zap.Int64("memory", r.Memory),
			)

			if j.Progress != nil {
				mu.Lock()
				j.Progress(r)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func evaluate(test int, c cases.Case, out Output, err error) Result {
	r := Result{
		Test:        test,
		Input:       c.Input,
		Output:      out.Stdout,
		Expected:    c.Expected,
		Elapsed:     out.Elapsed,
		CompileTime: out.CompileTime,
		Memory:      out.Memory,
	}

	switch {
	case errors.Is(err, ErrTimeLimit):
		r.Status = TimeLimit
		r.Error = err.Error()
	case err != nil:
		r.Status = RuntimeError
		r.Error = err.Error()
		if out.Stderr != "" && out.Stderr != err.Error() {
			r.Error += ": " + strings.TrimSpace(out.Stderr)
		}
	case Match(out.Stdout, c.Expected):
		r.Status = Passed
	default:
		r.Status = Failed
	}
	return r
}

// Match reports whether output equals expected, ignoring surrounding whitespace.
func Match(output, expected string) bool {
	return strings.TrimSpace(output) == strings.TrimSpace(expected)
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if r.Status != Passed {
			return false
		}
	}
	return true
}
