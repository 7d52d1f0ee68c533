package transform

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// MaxTokenSize is the longest integer, in digits, that Read accepts.
const MaxTokenSize = 1 << 20

// InvalidInputError is returned when the input is not a decimal integer.
type InvalidInputError struct {
	Token string
	Err   error
}

func (e *InvalidInputError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("invalid input: %s", e.Err)
	case e.Token == "":
		return "invalid input: no integer found"
	}
	return fmt.Sprintf("invalid input: %q is not an integer", e.Token)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// Parse parses a single decimal integer token.
func Parse(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &InvalidInputError{Token: s}
	}
	return n, nil
}

// Eval parses s and returns the transformed value in decimal. Values that fit
// in an int64 take the fast path, anything larger is computed with big.Int.
func Eval(s string) (string, error) {
	n, err := Parse(s)
	if err != nil {
		return "", err
	}

	if n.IsInt64() {
		out, err := Transform(n.Int64())
		switch err {
		case nil:
			return fmt.Sprint(out), nil
		case ErrOverflow:
			// fall through to big
		default:
			return "", err
		}
	}

	out, err := TransformBig(n)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// Read returns the first whitespace delimited token in r. Tokens longer than
// MaxTokenSize bytes are rejected.
func Read(r io.Reader) (string, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxTokenSize)
	s.Split(bufio.ScanWords)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				err = fmt.Errorf("integer longer than %d digits: %w", MaxTokenSize, err)
				return "", &InvalidInputError{Err: err}
			}
			return "", err
		}
		return "", &InvalidInputError{}
	}
	return s.Text(), nil
}
