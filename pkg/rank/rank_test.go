package rank

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/suenchunyu/word-frequency/pkg/aggregate"
)

func padRekey(word string, count int64) (string, string, error) {
	key, err := PadEncoder{Width: DefaultWidth}.Encode(count)
	return key, word, err
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name    string
		entries []aggregate.Entry[int64]
		want    []Entry[string, string]
	}{
		{
			name:    "empty",
			entries: nil,
			want:    []Entry[string, string]{},
		},
		{
			name: "ascending by count",
			entries: []aggregate.Entry[int64]{
				{Key: "mom", Aggregate: 3},
				{Key: "dog", Aggregate: 1},
				{Key: "dad", Aggregate: 2},
			},
			want: []Entry[string, string]{
				{SortKey: "0001", Payload: "dog"},
				{SortKey: "0002", Payload: "dad"},
				{SortKey: "0003", Payload: "mom"},
			},
		},
		{
			name: "ties broken by key",
			entries: []aggregate.Entry[int64]{
				{Key: "dog", Aggregate: 2},
				{Key: "cat", Aggregate: 2},
				{Key: "ant", Aggregate: 10},
				{Key: "bee", Aggregate: 2},
			},
			want: []Entry[string, string]{
				{SortKey: "0002", Payload: "bee"},
				{SortKey: "0002", Payload: "cat"},
				{SortKey: "0002", Payload: "dog"},
				{SortKey: "0010", Payload: "ant"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reorder(context.Background(), tt.entries, padRekey, WithWorkers(2))
			if err != nil {
				t.Fatalf("Reorder failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestReorderDeterministicAcrossWorkers(t *testing.T) {
	entries := make([]aggregate.Entry[int64], 0, 500)
	for i := 0; i < 500; i++ {
		entries = append(entries, aggregate.Entry[int64]{Key: "w" + strconv.Itoa(i), Aggregate: int64(i % 7)})
	}

	first, err := Reorder(context.Background(), entries, padRekey, WithWorkers(1))
	if err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}

	for _, workers := range []int{2, 5, 16} {
		got, err := Reorder(context.Background(), entries, padRekey, WithWorkers(workers))
		if err != nil {
			t.Fatalf("Reorder failed: %v", err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Errorf("Output with %d workers differs from single worker output", workers)
		}
	}

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		if cur.SortKey < prev.SortKey || (cur.SortKey == prev.SortKey && cur.Payload < prev.Payload) {
			t.Fatalf("Output not ordered at %d: %v then %v", i, prev, cur)
		}
	}
}

func TestReorderDuplicateKeysKeepInputOrder(t *testing.T) {
	entries := []aggregate.Entry[string]{
		{Key: "same", Aggregate: "second"},
		{Key: "same", Aggregate: "first"},
	}
	rekey := func(key string, agg string) (int, string, error) {
		return 1, agg, nil
	}

	got, err := Reorder(context.Background(), entries, rekey)
	if err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if got[0].Payload != "second" || got[1].Payload != "first" {
		t.Errorf("Expected input order for identical keys, got %v", got)
	}
}

func TestReorderRekeyError(t *testing.T) {
	errBoom := errors.New("boom")
	entries := []aggregate.Entry[int64]{
		{Key: "fine", Aggregate: 1},
		{Key: "broken", Aggregate: 2},
	}

	tests := []struct {
		name  string
		rekey RekeyFunc[int64, string, string]
	}{
		{
			name: "returns error",
			rekey: func(key string, count int64) (string, string, error) {
				if key == "broken" {
					return "", "", errBoom
				}
				return padRekey(key, count)
			},
		},
		{
			name: "panics",
			rekey: func(key string, count int64) (string, string, error) {
				if key == "broken" {
					panic("boom")
				}
				return padRekey(key, count)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reorder(context.Background(), entries, tt.rekey)
			if got != nil {
				t.Errorf("Expected no output, got %v", got)
			}
			if !errors.Is(err, ErrRekey) {
				t.Fatalf("Expected ErrRekey, got %v", err)
			}

			var rekeyErr *RekeyError
			if !errors.As(err, &rekeyErr) || rekeyErr.Key != "broken" {
				t.Errorf("Expected error naming key broken, got %v", err)
			}
		})
	}
}

func TestReorderOverflowInsideRekey(t *testing.T) {
	entries := []aggregate.Entry[int64]{{Key: "many", Aggregate: 12345}}

	_, err := Reorder(context.Background(), entries, padRekey)
	if !errors.Is(err, ErrRekey) || !errors.Is(err, ErrOverflow) {
		t.Fatalf("Expected rekey error wrapping overflow, got %v", err)
	}
}

func TestReorderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := []aggregate.Entry[int64]{{Key: "a", Aggregate: 1}}
	got, err := Reorder(ctx, entries, padRekey)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected no output from a cancelled run")
	}
}
