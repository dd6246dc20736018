package aggregate

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strconv"
	"testing"
)

func toMap[A any](entries []Entry[A]) map[string]A {
	m := make(map[string]A, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Aggregate
	}
	return m
}

func randomRecords(seed int64, n, keys int) []Record[int64] {
	rnd := rand.New(rand.NewSource(seed))
	records := make([]Record[int64], n)
	for i := range records {
		records[i] = Record[int64]{
			Key:   "k" + strconv.Itoa(rnd.Intn(keys)),
			Value: int64(rnd.Intn(10) + 1),
		}
	}
	return records
}

func TestAggregateEmpty(t *testing.T) {
	entries, err := New[int64](Sum[int64], 0).Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", entries)
	}
}

func TestAggregateConservation(t *testing.T) {
	records := randomRecords(1, 5000, 97)

	var want int64
	for _, r := range records {
		want += r.Value
	}

	for _, lanes := range []int{1, 2, 3, 8} {
		t.Run("lanes="+strconv.Itoa(lanes), func(t *testing.T) {
			entries, err := New[int64](Sum[int64], 0, WithLanes(lanes)).Aggregate(context.Background(), records)
			if err != nil {
				t.Fatalf("Aggregate failed: %v", err)
			}

			var got int64
			seen := make(map[string]bool)
			for _, e := range entries {
				if seen[e.Key] {
					t.Fatalf("Key %q emitted twice", e.Key)
				}
				seen[e.Key] = true
				got += e.Aggregate
			}
			if got != want {
				t.Errorf("Expected total %d, got %d", want, got)
			}
			if len(entries) != 97 {
				t.Errorf("Expected 97 keys, got %d", len(entries))
			}
		})
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	records := randomRecords(2, 2000, 31)

	want := make(map[string]int64)
	for _, r := range records {
		want[r.Key] += r.Value
	}

	shuffled := make([]Record[int64], len(records))
	copy(shuffled, records)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for _, input := range [][]Record[int64]{records, shuffled} {
		entries, err := New[int64](Sum[int64], 0, WithLanes(4), WithLaneBuffer(1)).Aggregate(context.Background(), input)
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		if got := toMap(entries); !reflect.DeepEqual(got, want) {
			t.Errorf("Aggregates differ from sequential fold")
		}
	}
}

func TestAggregateIdentity(t *testing.T) {
	records := []Record[int]{{Key: "once", Value: 5}}

	entries, err := New[int](Sum[int], 10).Aggregate(context.Background(), records)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "once" || entries[0].Aggregate != 15 {
		t.Errorf("Expected once=15, got %#v", entries)
	}
}

func TestAggregateCombineTypes(t *testing.T) {
	records := []Record[string]{
		{Key: "a", Value: "x"},
		{Key: "b", Value: "y"},
		{Key: "a", Value: "z"},
	}
	count := func(acc int, _ string) int { return acc + 1 }

	entries, err := New[string](count, 0).Aggregate(context.Background(), records)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if got := toMap(entries); !reflect.DeepEqual(got, map[string]int{"a": 2, "b": 1}) {
		t.Errorf("Unexpected aggregates %v", got)
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	records := randomRecords(4, 100, 7)
	before := make([]Record[int64], len(records))
	copy(before, records)

	if _, err := New[int64](Sum[int64], 0).Aggregate(context.Background(), records); err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if !reflect.DeepEqual(records, before) {
		t.Errorf("Input records were modified")
	}
}

func TestAggregateInvalidRecord(t *testing.T) {
	tests := []struct {
		name     string
		records  []Record[int64]
		position int
	}{
		{
			name:     "empty key",
			records:  []Record[int64]{{Key: "a", Value: 1}, {Key: "", Value: 1}},
			position: 1,
		},
		{
			name:     "invalid utf-8",
			records:  []Record[int64]{{Key: "a\xffb", Value: 1}},
			position: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := New[int64](Sum[int64], 0, WithLanes(2)).Aggregate(context.Background(), tt.records)
			if entries != nil {
				t.Errorf("Expected no output, got %v", entries)
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("Expected ErrInvalidRecord, got %v", err)
			}

			var invalid *InvalidRecordError
			if !errors.As(err, &invalid) {
				t.Fatalf("Expected *InvalidRecordError, got %T", err)
			}
			if invalid.Position != tt.position {
				t.Errorf("Expected position %d, got %d", tt.position, invalid.Position)
			}
		})
	}
}

func TestAggregateValidator(t *testing.T) {
	errNegative := errors.New("negative")
	a := New[int64](Sum[int64], 0).Validator(func(r Record[int64]) error {
		if r.Value < 0 {
			return errNegative
		}
		return nil
	})

	_, err := a.Aggregate(context.Background(), []Record[int64]{{Key: "w", Value: -3}})
	if !errors.Is(err, ErrInvalidRecord) || !errors.Is(err, errNegative) {
		t.Fatalf("Expected invalid record wrapping the validator error, got %v", err)
	}

	var invalid *InvalidRecordError
	if errors.As(err, &invalid) && (invalid.Key != "w" || invalid.Value != int64(-3)) {
		t.Errorf("Error does not name the offending record: %v", err)
	}
}

func TestAggregateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := New[int64](Sum[int64], 0).Aggregate(ctx, randomRecords(5, 1000, 10))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if entries != nil {
		t.Errorf("Expected no output from a cancelled run")
	}
}

func TestAggregateStream(t *testing.T) {
	records := randomRecords(6, 500, 13)
	want := make(map[string]int64)
	for _, r := range records {
		want[r.Key] += r.Value
	}

	in := make(chan Record[int64])
	go func() {
		defer close(in)
		for _, r := range records {
			in <- r
		}
	}()

	entries, err := New[int64](Sum[int64], 0, WithLanes(3)).AggregateStream(context.Background(), in)
	if err != nil {
		t.Fatalf("AggregateStream failed: %v", err)
	}
	if got := toMap(entries); !reflect.DeepEqual(got, want) {
		t.Errorf("Stream aggregates differ from sequential fold")
	}
}

func TestAggregateStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan Record[int64])
	cancel()

	_, err := New[int64](Sum[int64], 0).AggregateStream(ctx, in)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestPartition(t *testing.T) {
	for _, key := range []string{"a", "mom", "dad", "dog", "a longer key"} {
		p := partition(key, 7)
		if p < 0 || p >= 7 {
			t.Errorf("partition(%q) = %d out of range", key, p)
		}
		if partition(key, 7) != p {
			t.Errorf("partition(%q) is not stable", key)
		}
	}
}
