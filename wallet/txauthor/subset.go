// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"math/rand"
	"sort"
)

// MaxSubsetTries bounds the number of search nodes SelectSubset visits
// before falling back to a random draw.
const MaxSubsetTries = 100_000

// subsetSearch is the state of the depth first search over descending
// sorted amounts.
type subsetSearch struct {
	target  uint64
	amounts []uint64

	// remaining[i] is the sum of amounts[i:].
	remaining []uint64

	tries    int
	selected []int
}

// search explores including and excluding amounts[i] given the sum of the
// amounts selected so far.  It returns true once an exact match is found,
// leaving the match in selected.
func (s *subsetSearch) search(i int, sum uint64) bool {
	s.tries++
	if s.tries > MaxSubsetTries {
		return false
	}
	if sum == s.target {
		return true
	}
	if i == len(s.amounts) || sum+s.remaining[i] < s.target {
		return false
	}

	if next := sum + s.amounts[i]; next <= s.target {
		s.selected = append(s.selected, i)
		if s.search(i+1, next) {
			return true
		}
		s.selected = s.selected[:len(s.selected)-1]
	}

	return s.search(i+1, sum)
}

// SelectSubset selects indexes into amounts whose amounts sum to at least
// target.  A subset summing to exactly target is searched first; when none
// is found within MaxSubsetTries, amounts are shuffled with r and
// accumulated until target is reached.  A nil r uses a randomly seeded
// source.
//
// The returned indexes are sorted and hold at least one index whenever
// amounts is not empty, even for a zero target.  The one empty selection is
// a zero target over no amounts, which nothing has to cover.
// InsufficientFundsError is returned iff target exceeds the sum of all
// amounts.
func SelectSubset(target uint64, amounts []uint64, r *rand.Rand) ([]int,
	error) {

	var total uint64
	for _, a := range amounts {
		total += a
	}
	if target > total {
		return nil, &InsufficientFundsError{
			Required:  target,
			Available: total,
		}
	}

	// Sort a permutation so the result refers to the caller's order.
	order := make([]int, len(amounts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return amounts[order[i]] > amounts[order[j]]
	})

	s := &subsetSearch{
		target:    target,
		amounts:   make([]uint64, len(order)),
		remaining: make([]uint64, len(order)+1),
	}
	for i, idx := range order {
		s.amounts[i] = amounts[idx]
	}
	for i := len(s.amounts) - 1; i >= 0; i-- {
		s.remaining[i] = s.remaining[i+1] + s.amounts[i]
	}

	var selected []int
	if target > 0 && s.search(0, 0) {
		for _, i := range s.selected {
			selected = append(selected, order[i])
		}
	} else {
		log.Debugf("No exact subset for %d after %d tries, "+
			"selecting randomly", target, s.tries)
		selected = randomDraw(target, amounts, r)
	}
	sort.Ints(selected)

	return selected, nil
}

// randomDraw shuffles amounts and accumulates them until target is
// reached.  The caller guarantees the total covers target.
func randomDraw(target uint64, amounts []uint64, r *rand.Rand) []int {
	if r == nil {
		r = newRand()
	}

	perm := r.Perm(len(amounts))
	var (
		sum      uint64
		selected []int
	)
	for _, i := range perm {
		selected = append(selected, i)
		sum += amounts[i]
		if sum >= target {
			break
		}
	}

	return selected
}
