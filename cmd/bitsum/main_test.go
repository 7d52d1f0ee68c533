package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/bitsum/transform"
	"github.com/ardanlabs/bitsum/verdicts"
)

const helperEnv = "BITSUM_CLI_HELPER"

func TestMain(m *testing.M) {
	// Act as the external solution of check --exec, the mode is the first
	// program argument.
	if os.Getenv(helperEnv) != "" && len(os.Args) > 1 {
		os.Exit(helperMain(os.Args[1]))
	}
	os.Exit(m.Run())
}

func helperMain(mode string) int {
	switch mode {
	case "solve", "off-by-one":
		tok, err := transform.Read(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := transform.Eval(tok)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if mode == "off-by-one" {
			out += "1"
		}
		fmt.Println(out)
		return 0
	case "sleep":
		time.Sleep(time.Minute)
		return 0
	}
	fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
	return 2
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	a := newApp(strings.NewReader(stdin), &stdout, &stderr)
	cmd := a.rootCmd()
	if args == nil {
		// nil makes cobra fall back to os.Args
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSolve(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "0"},
		{"1", "1"},
		{"2\n", "2"},
		{" 3 ", "6"},
		{"7", "21"},
		{"100000000000000000", "100000000000000000"},
	}

	for _, tc := range cases {
		t.Run(strings.TrimSpace(tc.in), func(t *testing.T) {
			require := require.New(t)
			out, _, err := run(t, tc.in)
			require.NoError(err)
			require.Equal(tc.out, out)
		})
	}
}

func TestSolveInvalid(t *testing.T) {
	require := require.New(t)

	_, _, err := run(t, "abc")
	var ie *transform.InvalidInputError
	require.ErrorAs(err, &ie)

	_, _, err = run(t, "")
	require.ErrorAs(err, &ie)

	_, _, err = run(t, "-5")
	require.ErrorIs(err, transform.ErrNegative)
}

func TestSolveVerbose(t *testing.T) {
	require := require.New(t)

	out, logs, err := run(t, "7", "--verbose")
	require.NoError(err)
	require.Equal("21", out)
	require.Contains(logs, `"msg":"solved"`)
}

func TestGen(t *testing.T) {
	require := require.New(t)

	out, _, err := run(t, "", "gen", "--seed", "5", "-n", "3")
	require.NoError(err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(lines, 4)
	require.Equal("100000000000000000 100000000000000000", lines[3])

	again, _, err := run(t, "", "gen", "--seed", "5", "-n", "3")
	require.NoError(err)
	require.Equal(out, again)
}

func writeCases(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "cases.txt")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestCheck(t *testing.T) {
	require := require.New(t)

	gen, _, err := run(t, "", "gen", "--seed", "9")
	require.NoError(err)
	caseFile := writeCases(t, gen)
	dbFile := filepath.Join(t.TempDir(), "verdicts.db")

	out, _, err := run(t, "", "check", caseFile, "--db", dbFile, "--run", "r1", "--workers", "2")
	require.NoError(err)
	require.Contains(out, "passed 51/51")

	db, err := verdicts.NewDB(dbFile)
	require.NoError(err)
	defer db.Close()
	s, err := db.Summary("r1")
	require.NoError(err)
	require.Equal(51, s.Total())
}

func TestCheckFailed(t *testing.T) {
	require := require.New(t)

	caseFile := writeCases(t, "3 6\n7 20\n")
	out, _, err := run(t, "", "check", caseFile)
	require.ErrorIs(err, errNotPassed)
	require.Contains(out, "test 2: Failed")
	require.Contains(out, "passed 1/2")
}

func TestCheckBadFile(t *testing.T) {
	_, _, err := run(t, "", "check", writeCases(t, "3\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad line")
}

func TestCheckEnv(t *testing.T) {
	require := require.New(t)

	dbFile := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("BITSUM_DB", dbFile)
	t.Setenv("BITSUM_RUN", "from-env")

	_, _, err := run(t, "", "check", writeCases(t, "2 2\n"))
	require.NoError(err)

	db, err := verdicts.NewDB(dbFile)
	require.NoError(err)
	defer db.Close()
	s, err := db.Summary("from-env")
	require.NoError(err)
	require.Equal(1, s.Total())
}

func TestCheckExec(t *testing.T) {
	require := require.New(t)
	t.Setenv(helperEnv, "on")

	caseFile := writeCases(t, "3 6\n7 21\n8 8\n")
	out, _, err := run(t, "", "check", caseFile, "--exec", os.Args[0], "--", "solve")
	require.NoError(err)
	require.Contains(out, "passed 3/3")

	out, _, err = run(t, "", "check", caseFile, "--exec", os.Args[0], "--", "off-by-one")
	require.ErrorIs(err, errNotPassed)
	require.Contains(out, `got: "61\n"`)
	require.Contains(out, "passed 0/3")
}

func TestCheckExecTimeout(t *testing.T) {
	require := require.New(t)
	t.Setenv(helperEnv, "on")

	caseFile := writeCases(t, "3 6\n")
	start := time.Now()
	out, _, err := run(t, "", "check", caseFile, "--exec", os.Args[0], "--timeout", "200ms", "--", "sleep")
	require.ErrorIs(err, errNotPassed)
	require.Contains(out, "test 1: Time Limit")
	require.Less(time.Since(start), 10*time.Second)
}

func TestCheckArgs(t *testing.T) {
	require := require.New(t)
	caseFile := writeCases(t, "3 6\n")

	_, _, err := run(t, "", "check", caseFile, "extra")
	require.ErrorContains(err, "wrong number of arguments")

	_, _, err = run(t, "", "check", "--", "solve")
	require.ErrorContains(err, "wrong number of arguments")

	_, _, err = run(t, "", "check", caseFile, "--", "solve")
	require.ErrorContains(err, "need --exec")

	_, _, err = run(t, "", "check", caseFile, "--exec", "prog", "--src", "Source.cpp")
	require.ErrorContains(err, "mutually exclusive")

	_, _, err = run(t, "", "check", caseFile, "--src", "main.rs")
	require.ErrorContains(err, "set --lang")
}

func writeSource(t *testing.T, name, code string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))
	return path
}

func TestCheckSourcePython(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	require := require.New(t)

	src := writeSource(t, "solution.py", `m = int(input())
print(m if m % 2 == 0 else m * bin(m).count("1"))
`)
	gen, _, err := run(t, "", "gen", "--seed", "11", "-n", "5")
	require.NoError(err)

	out, _, err := run(t, "", "check", writeCases(t, gen), "--src", src)
	require.NoError(err)
	require.Contains(out, "compiled in")
	require.Contains(out, "passed 6/6")
}

func TestCheckSourceCompileFailed(t *testing.T) {
	require := require.New(t)

	// Fails both without g++ and with it.
	src := writeSource(t, "Source.cpp", "int main( {")
	dbFile := filepath.Join(t.TempDir(), "verdicts.db")

	out, _, err := run(t, "", "check", writeCases(t, "3 6\n7 21\n"), "--src", src, "--db", dbFile, "--run", "cpp")
	require.ErrorIs(err, errNotPassed)
	require.Equal(2, strings.Count(out, "Runtime Error"))
	require.Contains(out, "cpp compilation failed")

	db, err := verdicts.NewDB(dbFile)
	require.NoError(err)
	defer db.Close()
	s, err := db.Summary("cpp")
	require.NoError(err)
	require.Equal(2, s["Runtime Error"])
}
