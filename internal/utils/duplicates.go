package utils

import "strings"

// BestByKey reduces items to one per key, keeping whichever item scores
// highest according to score. Preserves the first-seen order of keys.
func BestByKey[T any](items []T, key func(T) string, score func(T) float64) []T {
	order := make([]string, 0, len(items))
	best := make(map[string]T, len(items))
	for _, item := range items {
		k := strings.ToLower(key(item))
		cur, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = item
			continue
		}
		if score(item) > score(cur) {
			best[k] = item
		}
	}
	out := make([]T, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}
