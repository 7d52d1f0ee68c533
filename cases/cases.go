// Package cases generates, writes and parses bitsum test case files.
//
// A case file has one case per line, the input followed by the expected output:
//
//	3 6
//	100000000000000000 100000000000000000
package cases

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/ardanlabs/bitsum/transform"
)

const (
	// DefaultCount is the number of random cases Generate is usually asked for.
	DefaultCount = 50
	// MaxValue is the exclusive upper bound for random inputs, and is always
	// appended as the last case.
	MaxValue = 100_000_000_000_000_000
)

// Case is a single input with its expected output.
type Case struct {
	Input    string
	Expected string
}

// Generate returns n random cases followed by the MaxValue case.
func Generate(rng *rand.Rand, n int) ([]Case, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative case count: %d", n)
	}

	out := make([]Case, 0, n+1)
	for i := 0; i < n; i++ {
		c, err := newCase(rng.Int63n(MaxValue))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	c, err := newCase(MaxValue)
	if err != nil {
		return nil, err
	}
	return append(out, c), nil
}

func newCase(m int64) (Case, error) {
	res, err := transform.Transform(m)
	if err != nil {
		return Case{}, fmt.Errorf("%d: %w", m, err)
	}

	c := Case{
		Input:    strconv.FormatInt(m, 10),
		Expected: strconv.FormatInt(res, 10),
	}
	return c, nil
}

// Write writes cases to w, one "input expected" line each.
func Write(w io.Writer, cs []Case) error {
	bw := bufio.NewWriter(w)
	for _, c := range cs {
		if _, err := fmt.Fprintf(bw, "%s %s\n", c.Input, c.Expected); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Parse reads cases from r. The last field on a line is the expected output,
// the fields before it form the input. Empty lines are skipped.
func Parse(r io.Reader) ([]Case, error) {
	var cs []Case
	scanner := bufio.NewScanner(r)
	lnum := 0
	for scanner.Scan() {
		lnum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%d: bad line: %q", lnum, scanner.Text())
		}

		c := Case{
			Input:    strings.Join(fields[:len(fields)-1], " "),
			Expected: fields[len(fields)-1],
		}
		cs = append(cs, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cs, nil
}
