package game

import (
	"math/rand"
	"testing"
)

func TestShuffledLettersIsPermutation(t *testing.T) {
	alphabet := []string{"A", "B", "C", "D", "E"}
	out := ShuffledLetters(alphabet, rand.New(rand.NewSource(1)))
	if len(out) != len(alphabet) {
		t.Fatalf("len = %d, want %d", len(out), len(alphabet))
	}
	seen := map[string]int{}
	for _, l := range out {
		seen[l]++
	}
	for _, l := range alphabet {
		if seen[l] != 1 {
			t.Fatalf("letter %s appears %d times", l, seen[l])
		}
	}
}

func TestShuffledLettersLeavesInputAlone(t *testing.T) {
	alphabet := []string{"A", "B", "C"}
	ShuffledLetters(alphabet, rand.New(rand.NewSource(2)))
	if alphabet[0] != "A" || alphabet[1] != "B" || alphabet[2] != "C" {
		t.Fatalf("input mutated: %v", alphabet)
	}
}
