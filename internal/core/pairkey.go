package core

// PairKey returns the deterministic history key for a DM pair. The key is
// symmetric: PairKey(a, b) == PairKey(b, a) for any identifiers.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}
