// Command bitsum reads an integer from standard input and prints it unchanged
// when even, or multiplied by its number of set bits when odd.
//
//	$ echo 7 | bitsum
//	21
//
// The gen and check subcommands generate case files and judge solutions
// against them.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ardanlabs/bitsum/transform"
)

// errNotPassed is returned by check when some case did not pass. The details
// were already printed.
var errNotPassed = errors.New("not all cases passed")

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg *viper.Viper
	log *zap.Logger
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	cfg := viper.New()
	cfg.SetEnvPrefix("BITSUM")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		log:    zap.NewNop(),
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bitsum",
		Short:         "Read an integer and print its bitsum",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return a.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.solve()
		},
	}

	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging to stderr")

	cmd.AddCommand(a.genCmd(), a.checkCmd())
	return cmd
}

func (a *app) initLogger() error {
	level := zapcore.WarnLevel
	if a.cfg.GetBool("verbose") {
		level = zapcore.DebugLevel
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(enc),
		zapcore.AddSync(a.stderr),
		level,
	)
	a.log = zap.New(core)
	return nil
}

func (a *app) solve() error {
	tok, err := transform.Read(a.stdin)
	if err != nil {
		return err
	}

	out, err := transform.Eval(tok)
	if err != nil {
		return err
	}
	a.log.Debug("solved", zap.String("input", tok), zap.String("output", out))

	_, err = fmt.Fprint(a.stdout, out)
	return err
}

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.rootCmd().Execute(); err != nil {
		if !errors.Is(err, errNotPassed) {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		os.Exit(1)
	}
}
