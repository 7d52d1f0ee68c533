package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ardanlabs/bitsum/cases"
	"github.com/ardanlabs/bitsum/judge"
	"github.com/ardanlabs/bitsum/verdicts"
)

func (a *app) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check CASEFILE [-- PROGRAM_ARGS...]",
		Short: "Judge a solution against a case file",
		Long: `Judge runs every case in CASEFILE through a solution and compares the
trimmed output with the expected value.

The solution is the built in transform, a program given with --exec, or a
source file given with --src. Sources are compiled once before the first case
(g++ for cpp, javac for java, python3 runs python directly); --lang overrides
the language guessed from the file extension. A failed build fails every case.

With --db the verdicts are stored in an SQLite database.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var progArgs []string
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				progArgs = args[dash:]
				args = args[:dash]
			}
			if len(args) != 1 {
				return fmt.Errorf("wrong number of arguments")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.check(ctx, args[0], progArgs)
		},
	}

	cmd.Flags().String("exec", "", "external program to judge")
	cmd.Flags().String("src", "", "submission source file to compile and judge")
	cmd.Flags().String("lang", "", "submission language: cpp, python or java")
	cmd.Flags().Duration("timeout", judge.DefaultTimeout, "per case time limit for --exec and --src")
	cmd.Flags().Duration("compile-timeout", judge.DefaultCompileTimeout, "time limit for compiling --src")
	cmd.Flags().Int("workers", 0, "cases run in parallel (0 is one per CPU)")
	cmd.Flags().String("db", "", "SQLite file to store verdicts in")
	cmd.Flags().String("run", "", "run name in the verdicts database (default is a timestamp)")
	return cmd
}

func (a *app) check(ctx context.Context, caseFile string, progArgs []string) error {
	file, err := os.Open(caseFile)
	if err != nil {
		return err
	}
	defer file.Close()

	cs, err := cases.Parse(file)
	if err != nil {
		return fmt.Errorf("%s: %w", caseFile, err)
	}

	runner, err := a.runner(progArgs)
	if err != nil {
		return err
	}
	if c, ok := runner.(*judge.CompileRunner); ok {
		defer c.Close()
	}

	j := judge.Judge{
		Runner:  runner,
		Workers: a.cfg.GetInt("workers"),
		Logger:  a.log,
		Progress: func(r judge.Result) {
			a.log.Info("progress", zap.Int("test", r.Test), zap.Int("total", len(cs)))
		},
	}

	a.log.Info("checking", zap.String("cases", caseFile), zap.Int("count", len(cs)))
	results, err := j.Check(ctx, cs)
	if err != nil {
		return err
	}

	if c, ok := runner.(*judge.CompileRunner); ok {
		if err := c.CompileErr(); err != nil {
			a.log.Warn("compile failed", zap.Error(err))
		}
		fmt.Fprintf(a.stdout, "compiled in %s\n", c.CompileTime().Round(time.Millisecond))
	}

	passed := 0
	for _, r := range results {
		if r.Status == judge.Passed {
			passed++
		}
		fmt.Fprintf(a.stdout, "test %d: %s (%s", r.Test, r.Status, r.Elapsed.Round(time.Microsecond))
		if r.Memory > 0 {
			fmt.Fprintf(a.stdout, ", %d KiB", r.Memory/1024)
		}
		fmt.Fprintln(a.stdout, ")")
		if r.Status != judge.Passed {
			fmt.Fprintf(a.stdout, "\tinput: %s\n\texpected: %s\n\tgot: %q\n", r.Input, r.Expected, r.Output)
			if r.Error != "" {
				fmt.Fprintf(a.stdout, "\terror: %s\n", r.Error)
			}
		}
	}
	fmt.Fprintf(a.stdout, "passed %d/%d\n", passed, len(results))

	if dbFile := a.cfg.GetString("db"); dbFile != "" {
		if err := a.store(dbFile, results); err != nil {
			return err
		}
	}

	if !judge.AllPassed(results) {
		return errNotPassed
	}
	return nil
}

// runner picks the solution to judge from the --exec, --src and --lang flags.
func (a *app) runner(progArgs []string) (judge.Runner, error) {
	prog := a.cfg.GetString("exec")
	src := a.cfg.GetString("src")
	timeout := a.cfg.GetDuration("timeout")

	switch {
	case prog != "" && src != "":
		return nil, fmt.Errorf("--exec and --src are mutually exclusive")
	case prog != "":
		r := judge.ExecRunner{
			Path:    prog,
			Args:    progArgs,
			Timeout: timeout,
		}
		return &r, nil
	case src != "":
		lang := judge.Language(a.cfg.GetString("lang"))
		if lang == "" {
			var err error
			if lang, err = judge.LanguageOf(src); err != nil {
				return nil, fmt.Errorf("%w, set --lang", err)
			}
		}
		r := judge.CompileRunner{
			Lang:           lang,
			Source:         src,
			Timeout:        timeout,
			CompileTimeout: a.cfg.GetDuration("compile-timeout"),
		}
		return &r, nil
	case len(progArgs) > 0:
		return nil, fmt.Errorf("program arguments need --exec")
	}

	return judge.FuncRunner{}, nil
}

func (a *app) store(dbFile string, results []judge.Result) error {
	run := a.cfg.GetString("run")
	if run == "" {
		run = time.Now().UTC().Format("20060102T150405.000")
	}

	db, err := verdicts.NewDB(dbFile)
	if err != nil {
		return err
	}

	if err := db.AddRun(run, results); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("unable to store verdicts: %w", err)
	}

	a.log.Info("stored verdicts", zap.String("db", dbFile), zap.String("run", run))
	return nil
}
