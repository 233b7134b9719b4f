// Package teams enumerates the ways a roster can be split into two equal
// teams.
package teams

// Combinations iterates over every k-subset of {0..n-1} in lexicographic
// order. The zero value yields nothing; use NewCombinations.
//
//	c := NewCombinations(4, 2)
//	for c.Next() {
//		idx := c.Indices() // [0 1], [0 2], [0 3], [1 2], ...
//	}
type Combinations struct {
	n, k    int
	idx     []int
	started bool
	done    bool
}

// NewCombinations creates an iterator over k-subsets of n items.
func NewCombinations(n, k int) *Combinations {
	c := &Combinations{n: n, k: k}
	c.Reset()
	return c
}

// Reset rewinds the iterator to the first subset.
func (c *Combinations) Reset() {
	c.started = false
	c.done = c.k < 0 || c.n < 0 || c.k > c.n
	c.idx = make([]int, max(c.k, 0))
	for i := range c.idx {
		c.idx[i] = i
	}
}

// Next advances to the next subset and reports whether one exists.
func (c *Combinations) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		return true
	}
	// Find the rightmost position that can still move right.
	i := c.k - 1
	for i >= 0 && c.idx[i] == c.n-c.k+i {
		i--
	}
	if i < 0 {
		c.done = true
		return false
	}
	c.idx[i]++
	for j := i + 1; j < c.k; j++ {
		c.idx[j] = c.idx[j-1] + 1
	}
	return true
}

// Indices returns a copy of the current subset.
func (c *Combinations) Indices() []int {
	out := make([]int, len(c.idx))
	copy(out, c.idx)
	return out
}

// Count returns C(n, k), or 0 when k is out of range.
func Count(n, k int) int {
	if k < 0 || n < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	res := 1
	for i := 1; i <= k; i++ {
		res = res * (n - k + i) / i
	}
	return res
}
