package judge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCompileTimeout is the time limit for building a submission.
const DefaultCompileTimeout = 30 * time.Second

// Language is the language a submission is written in.
type Language string

const (
	Cpp    Language = "cpp"
	Python Language = "python"
	Java   Language = "java"
)

// Toolchain holds the commands that build and run a submission. Arguments
// may use the placeholders {src}, {dir}, {bin} and {class}. An empty Compile
// means the source is run directly.
type Toolchain struct {
	Compile []string
	Run     []string
}

// Toolchains are the default toolchains per language.
var Toolchains = map[Language]Toolchain{
	Cpp: {
		Compile: []string{"g++", "-O2", "-o", "{bin}", "{src}"},
		Run:     []string{"{bin}"},
	},
	Python: {
		Run: []string{"python3", "{src}"},
	},
	Java: {
		Compile: []string{"javac", "-d", "{dir}", "{src}"},
		Run:     []string{"java", "-cp", "{dir}", "{class}"},
	},
}

// LanguageOf guesses the language from the source file extension.
func LanguageOf(src string) (Language, error) {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".cpp", ".cc", ".cxx":
		return Cpp, nil
	case ".py":
		return Python, nil
	case ".java":
		return Java, nil
	}
	return "", fmt.Errorf("%s: unknown language", src)
}

// CompileError is reported for every case when the submission did not build.
type CompileError struct {
	Lang   Language
	Output string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s compilation failed: %s", e.Lang, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compiler is implemented by runners that need a build step before the first
// Run. Judge.Check calls Compile once.
type Compiler interface {
	Compile(ctx context.Context) error
}

var errNotCompiled = errors.New("submission not compiled")

// CompileRunner builds a submission from source, then runs it for each case
// with an ExecRunner.
type CompileRunner struct {
	Lang           Language
	Source         string
	Dir            string        // build directory, a temporary one if empty
	Toolchain      *Toolchain    // Toolchains[Lang] if nil
	Timeout        time.Duration // per case, DefaultTimeout if zero
	CompileTimeout time.Duration // DefaultCompileTimeout if zero

	exec        *ExecRunner
	tempDir     string
	compileTime time.Duration
	compileErr  *CompileError
}

// Compile builds the submission. A failed build is not returned, it is
// reported by every following Run. Compile returns an error only when the
// runner cannot be set up or ctx is done.
func (r *CompileRunner) Compile(ctx context.Context) error {
	tc := r.Toolchain
	if tc == nil {
		t, ok := Toolchains[r.Lang]
		if !ok {
			return fmt.Errorf("unsupported language: %q", r.Lang)
		}
		tc = &t
	}
	if len(tc.Run) == 0 {
		return fmt.Errorf("%s: empty run command", r.Lang)
	}

	src, err := filepath.Abs(r.Source)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}

	dir := r.Dir
	if dir == "" {
		if dir, err = os.MkdirTemp("", "bitsum-*"); err != nil {
			return err
		}
		r.tempDir = dir
	}

	vars := strings.NewReplacer(
		"{src}", src,
		"{dir}", dir,
		"{bin}", filepath.Join(dir, "solution"),
		"{class}", strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
	)
	expand := func(args []string) []string {
		out := make([]string, len(args))
		for i, a := range args {
			out[i] = vars.Replace(a)
		}
		return out
	}

	if len(tc.Compile) > 0 {
		if err := r.build(ctx, expand(tc.Compile)); err != nil {
			return err
		}
	}

	run := expand(tc.Run)
	r.exec = &ExecRunner{
		Path:    run[0],
		Args:    run[1:],
		Timeout: r.Timeout,
	}
	return nil
}

func (r *CompileRunner) build(ctx context.Context, args []string) error {
	timeout := r.CompileTimeout
	if timeout <= 0 {
		timeout = DefaultCompileTimeout
	}

	buildCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var output bytes.Buffer
	cmd := exec.CommandContext(buildCtx, args[0], args[1:]...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	r.compileTime = time.Since(start)

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(buildCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("took longer than %s: %w", timeout, err)
	}

	r.compileErr = &CompileError{
		Lang:   r.Lang,
		Output: strings.TrimSpace(output.String()),
		Err:    err,
	}
	return nil
}

// CompileTime returns how long the build took.
func (r *CompileRunner) CompileTime() time.Duration {
	return r.compileTime
}

// CompileErr returns the build failure, nil if the submission compiled.
func (r *CompileRunner) CompileErr() error {
	if r.compileErr == nil {
		return nil
	}
	return r.compileErr
}

// Run runs the built submission on input.
func (r *CompileRunner) Run(ctx context.Context, input string) (Output, error) {
	if r.compileErr != nil {
		out := Output{Stderr: r.compileErr.Output, CompileTime: r.compileTime}
		return out, r.compileErr
	}
	if r.exec == nil {
		return Output{}, errNotCompiled
	}

	out, err := r.exec.Run(ctx, input)
	out.CompileTime = r.compileTime
	return out, err
}

// Close removes the temporary build directory, if one was created.
func (r *CompileRunner) Close() error {
	if r.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(r.tempDir)
	r.tempDir = ""
	return err
}
