package executor

import "github.com/matzehuels/drawsync/pkg/render"

// Partition splits jobs into at most k groups by dealing them out
// round-robin: job i goes to group i mod n, where n = min(k, max(1, len(jobs))).
//
// Every job lands in exactly one group, group sizes differ by at most one,
// and relative order is preserved within each group. k < 1 is treated as 1.
// The result depends only on the job order and k.
func Partition(jobs []render.Job, k int) [][]render.Job {
	n := Effective(k, len(jobs))
	groups := make([][]render.Job, n)
	for i := range groups {
		groups[i] = make([]render.Job, 0, (len(jobs)+n-1)/n)
	}
	for i, j := range jobs {
		groups[i%n] = append(groups[i%n], j)
	}
	return groups
}

// Effective returns the number of partitions used for count jobs when
// k workers are requested.
func Effective(k, count int) int {
	if k < 1 {
		k = 1
	}
	if count < 1 {
		count = 1
	}
	return min(k, count)
}
