// Package version implements ordering over dotted numeric firmware version
// strings ("1.2.0"). Missing trailing components compare as zero, so
// "1.2" == "1.2.0".
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed version string")

const (
	Less    = -1
	Equal   = 0
	Greater = 1
)

// Parse splits v into its numeric components. Empty strings and non-numeric
// or negative components are rejected.
func Parse(v string) ([]int, error) {
	const fn = "version:Parse"
	if v == "" {
		return nil, fmt.Errorf("%s:%w: empty string", fn, ErrMalformed)
	}
	fields := strings.Split(v, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s:%w: %q", fn, ErrMalformed, v)
		}
		parts = append(parts, n)
	}
	return parts, nil
}

// Compare returns Less, Equal, or Greater for a versus b. Comparison is
// positional and numeric, never lexicographic, so "1.10.0" > "1.9.0".
func Compare(a, b string) (int, error) {
	const fn = "version:Compare"
	ap, err := Parse(a)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", fn, err)
	}
	bp, err := Parse(b)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", fn, err)
	}

	n := len(ap)
	if len(bp) > n {
		n = len(bp)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(ap) {
			av = ap[i]
		}
		if i < len(bp) {
			bv = bp[i]
		}
		if av > bv {
			return Greater, nil
		}
		if av < bv {
			return Less, nil
		}
	}
	return Equal, nil
}

// IsValid reports whether v parses as a dotted numeric version.
func IsValid(v string) bool {
	_, err := Parse(v)
	return err == nil
}
