package rank

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultWidth is the sort key width of the word count, enough for 9999.
const DefaultWidth = 4

type OverflowPolicy uint8

const (
	// OverflowWiden grows the width of every key in a run to fit its largest count.
	OverflowWiden OverflowPolicy = iota
	// OverflowFail rejects a run holding a count wider than the configured width.
	OverflowFail
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowWiden:
		return "widen"
	case OverflowFail:
		return "fail"
	default:
		return fmt.Sprintf("unknown (%d)", p)
	}
}

func OverflowPolicyFromString(str string) OverflowPolicy {
	switch strings.ToLower(str) {
	case "fail":
		return OverflowFail
	default:
		return OverflowWiden
	}
}

// PadEncoder formats counts as zero-padded decimal strings of one fixed
// width, so that comparing two keys as strings compares the counts.
type PadEncoder struct {
	Width int
}

func (e PadEncoder) width() int {
	if e.Width < 1 {
		return DefaultWidth
	}
	return e.Width
}

// Encode pads n to the encoder width. It never truncates: a count wider
// than the width is an *OverflowError.
func (e PadEncoder) Encode(n int64) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegative, n)
	}

	w := e.width()
	s := strconv.FormatInt(n, 10)
	switch {
	case len(s) > w:
		return "", &OverflowError{Value: n, Width: w}
	case len(s) == w:
		return s, nil
	default:
		return strings.Repeat("0", w-len(s)) + s, nil
	}
}

// Fit returns the encoder to use for a run whose largest count is max,
// held by key. Under OverflowWiden the width grows to the digits of max;
// under OverflowFail a too wide max is an *OverflowError.
func (e PadEncoder) Fit(key string, max int64, policy OverflowPolicy) (PadEncoder, error) {
	w := e.width()
	if max < 0 {
		return e, fmt.Errorf("%w: %d", ErrNegative, max)
	}

	d := Digits(max)
	if d <= w {
		return PadEncoder{Width: w}, nil
	}
	if policy == OverflowFail {
		return e, &OverflowError{Key: key, Value: max, Width: w}
	}
	return PadEncoder{Width: d}, nil
}

// Digits returns the number of decimal digits of n, ignoring its sign.
func Digits(n int64) int {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		return len(s) - 1
	}
	return len(s)
}
