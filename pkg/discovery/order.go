package discovery

import (
	"cmp"
	"slices"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
)

// SortPaths orders paths by hop count ascending, then aggregate CVSS
// descending. The sort is stable, so equal paths keep discovery order.
func SortPaths(paths []*attackpath.AttackPath) {
	slices.SortStableFunc(paths, func(a, b *attackpath.AttackPath) int {
		if c := cmp.Compare(a.Hops, b.Hops); c != 0 {
			return c
		}
		return cmp.Compare(b.CVSSScore, a.CVSSScore)
	})
}
