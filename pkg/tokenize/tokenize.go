package tokenize

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/suenchunyu/word-frequency/pkg/aggregate"
)

// WordPattern matches runs of ASCII word characters and apostrophes.
const WordPattern = `[\w']+`

// MaxLineSize bounds a single input line.
const MaxLineSize = 16 * 1024 * 1024

// Tokenizer splits one line of text into words. Every word returned becomes
// a record, an empty word is rejected by the aggregation rather than skipped.
type Tokenizer interface {
	Split(line string) []string
}

type Func func(line string) []string

func (f Func) Split(line string) []string {
	return f(line)
}

// Regexp emits every match of a pattern, lowercased.
type Regexp struct {
	pattern *regexp.Regexp
}

func NewRegexp(expr string) (*Regexp, error) {
	p, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Regexp{pattern: p}, nil
}

// Default is the word-count tokenizer built on WordPattern. Bytes that are
// not valid UTF-8 never match and act as separators.
var Default Tokenizer = &Regexp{pattern: regexp.MustCompile(WordPattern)}

func (t *Regexp) Split(line string) []string {
	words := t.pattern.FindAllString(line, -1)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// Records turns every word of line into a (word, 1) record.
func Records(t Tokenizer, line string) []aggregate.Record[int64] {
	words := t.Split(line)
	records := make([]aggregate.Record[int64], 0, len(words))
	for _, w := range words {
		records = append(records, aggregate.Record[int64]{Key: w, Value: 1})
	}
	return records
}

// Scan reads r line by line and sends a (word, 1) record for every word to
// out. It does not close out.
func Scan(ctx context.Context, t Tokenizer, r io.Reader, out chan<- aggregate.Record[int64]) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineSize)

	for scanner.Scan() {
		for _, record := range Records(t, scanner.Text()) {
			select {
			case out <- record:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return scanner.Err()
}
