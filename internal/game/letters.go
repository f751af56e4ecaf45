package game

import "math/rand"

// ShuffledLetters returns a shuffled copy of the alphabet, the day's fixed
// challenge sequence.
func ShuffledLetters(alphabet []string, rng *rand.Rand) []string {
	out := make([]string, len(alphabet))
	copy(out, alphabet)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
