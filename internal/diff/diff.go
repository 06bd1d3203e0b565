// Package diff computes order-preserving set differences over value types.
package diff

// Unseen returns the elements of fresh whose value does not occur in seen,
// preserving fresh's order. Membership is tested against seen only:
// duplicates within fresh are kept.
func Unseen[T comparable](seen, fresh []T) []T {
	seenSet := make(map[T]struct{}, len(seen))
	for _, v := range seen {
		seenSet[v] = struct{}{}
	}

	var unseen []T
	for _, v := range fresh {
		if _, ok := seenSet[v]; !ok {
			unseen = append(unseen, v)
		}
	}
	return unseen
}
