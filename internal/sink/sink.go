// Package sink writes ranked entries as text lines.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/smallnest/ringbuffer"
	"github.com/suenchunyu/word-frequency/internal/config"
	"github.com/suenchunyu/word-frequency/pkg/rank"
)

const DefaultBuffer = 4096

type Format uint8

const (
	FormatTSV Format = iota
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatTSV:
		return "tsv"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("unknown (%d)", f)
	}
}

// Ext is the object name suffix results of this format are stored with.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".jsonl"
	}
	return ".tsv"
}

func FormatFromString(str string) (Format, error) {
	name, err := config.SinkFormat(str)
	if err != nil {
		return FormatTSV, err
	}
	if name == "json" {
		return FormatJSON, nil
	}
	return FormatTSV, nil
}

type line struct {
	SortKey string `json:"sort_key"`
	Payload string `json:"payload"`
}

// Writer stages encoded lines in a ring buffer and hands them to the
// underlying writer whenever the buffer cannot take the next line.
type Writer struct {
	w      io.Writer
	format Format
	buf    *ringbuffer.RingBuffer
	lines  int
}

func New(w io.Writer, format Format, size int) *Writer {
	if size < 1 {
		size = DefaultBuffer
	}
	return &Writer{
		w:      w,
		format: format,
		buf:    ringbuffer.New(size),
	}
}

func (w *Writer) encode(e rank.Entry[string, string]) ([]byte, error) {
	switch w.format {
	case FormatJSON:
		b, err := json.Marshal(line{SortKey: e.SortKey, Payload: e.Payload})
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		return []byte(e.SortKey + "\t" + e.Payload + "\n"), nil
	}
}

func (w *Writer) Write(entries []rank.Entry[string, string]) error {
	for _, e := range entries {
		b, err := w.encode(e)
		if err != nil {
			return err
		}

		if w.buf.Free() < len(b) {
			if err = w.Flush(); err != nil {
				return err
			}
		}

		// a line larger than the whole buffer bypasses it
		if len(b) > w.buf.Capacity() {
			if _, err = w.w.Write(b); err != nil {
				return err
			}
			w.lines++
			continue
		}

		if _, err = w.buf.Write(b); err != nil {
			return err
		}
		w.lines++
	}
	return nil
}

// Flush writes out everything staged so far.
func (w *Writer) Flush() error {
	if w.buf.IsEmpty() {
		return nil
	}
	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

// Lines reports how many entries have been accepted.
func (w *Writer) Lines() int {
	return w.lines
}

// Encode renders entries in one call through a buffer of size bytes, used
// when a result is stored as a single object.
func Encode(entries []rank.Entry[string, string], format Format, size int) ([]byte, error) {
	var sb strings.Builder
	w := New(&sb, format, size)
	if err := w.Write(entries); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}
