package shard

import (
	"fmt"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{-1, 1},
		{0, 1},
		{1, 1},
		{16, 16},
		{256, 256},
		{500, 256},
	}

	for _, tt := range tests {
		if got := Clamp(tt.input); got != tt.expected {
			t.Errorf("Clamp(%d) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestIndex_SingleShard(t *testing.T) {
	// With numShards <= 1, every key goes to shard 0
	for _, n := range []int{-1, 0, 1} {
		for _, key := range []string{"a", "b", "user#1"} {
			if got := Index(key, n); got != 0 {
				t.Errorf("Index(%q, %d) = %d, want 0", key, n, got)
			}
		}
	}
}

func TestIndex_Deterministic(t *testing.T) {
	key := "u1\x00<nil>"
	first := Index(key, 16)
	for i := 0; i < 100; i++ {
		if got := Index(key, 16); got != first {
			t.Fatalf("Index not deterministic: got %d then %d", first, got)
		}
	}
}

func TestIndex_Distribution(t *testing.T) {
	numShards := 16
	counts := make(map[int]int)
	for i := 0; i < 1000; i++ {
		idx := Index(fmt.Sprintf("item#%d", i), numShards)
		if idx < 0 || idx >= numShards {
			t.Fatalf("Index out of range: %d", idx)
		}
		counts[idx]++
	}

	// With 1000 keys over 16 shards every shard should be used
	if len(counts) != numShards {
		t.Errorf("expected all %d shards used, got %d", numShards, len(counts))
	}
}

func TestIndex_Clamped(t *testing.T) {
	for i := 0; i < 100; i++ {
		if idx := Index(fmt.Sprintf("k%d", i), 1000); idx >= MaxShards {
			t.Fatalf("expected index below %d, got %d", MaxShards, idx)
		}
	}
}

func BenchmarkIndex(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Index("12345678-1234-1234-1234-123456789012\x00<nil>", 16)
	}
}
