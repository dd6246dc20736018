package snowflake

import (
	"sync"
	"testing"
	"time"
)

func TestNewNode(t *testing.T) {
	for _, node := range []int64{-1, 1024} {
		if _, err := NewNode(node); err != ErrInvalidNode {
			t.Errorf("NewNode(%d): expected ErrInvalidNode, got %v", node, err)
		}
	}

	if _, err := NewNode(1023); err != nil {
		t.Errorf("NewNode(1023) failed: %v", err)
	}
}

func TestGenerateUnique(t *testing.T) {
	n, err := NewNode(7)
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}

	const perWorker = 2000
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[ID]bool)
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]ID, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, n.Generate())
			}

			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if seen[id] {
					t.Errorf("Duplicate id %s", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != 4*perWorker {
		t.Errorf("Expected %d ids, got %d", 4*perWorker, len(seen))
	}
}

func TestGenerateFields(t *testing.T) {
	n, _ := NewNode(42)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	first := n.Generate()
	second := n.Generate()

	if first.Node() != 42 || second.Node() != 42 {
		t.Errorf("Expected node 42, got %d and %d", first.Node(), second.Node())
	}
	if first.Step() != 0 || second.Step() != 1 {
		t.Errorf("Expected steps 0 and 1, got %d and %d", first.Step(), second.Step())
	}
	if !first.Time().Equal(fixed) {
		t.Errorf("Expected time %v, got %v", fixed, first.Time())
	}
}

func TestGenerateClockBackwards(t *testing.T) {
	n, _ := NewNode(1)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	before := n.Generate()
	now = now.Add(-time.Second)
	after := n.Generate()

	if after <= before {
		t.Errorf("Expected increasing ids, got %d then %d", before, after)
	}
}
