package explorer

import (
	"cmp"
	"slices"
	"strings"

	models "mediafolders/internal/domain/models/explorer"
)

func foldName(s string) string { return models.FoldName(s) }

// Order returns a new slice holding items sorted according to order.
//
// Items are compared by folded name or creation time, then by id, so the
// result is a total order and matches the order both stores page in.
// Descending orders are the ascending order reversed, so Order(x, desc) is
// always exactly the mirror of Order(x, asc), ties included.
// An unknown order sorts by name ascending.
func Order[T models.Orderable](items []T, order models.OrderSpec) []T {
	if !order.Valid() {
		order = models.DefaultOrder
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}

	if order.ByDate() {
		slices.SortStableFunc(idx, func(a, b int) int {
			if c := items[a].SortTime().Compare(items[b].SortTime()); c != 0 {
				return c
			}
			return cmp.Compare(items[a].SortID(), items[b].SortID())
		})
	} else {
		keys := make([]string, len(items))
		for i, it := range items {
			keys[i] = foldName(it.SortName())
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			if c := strings.Compare(keys[a], keys[b]); c != 0 {
				return c
			}
			return cmp.Compare(items[a].SortID(), items[b].SortID())
		})
	}

	if order.Descending() {
		slices.Reverse(idx)
	}

	out := make([]T, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
