// Package pattern provides predicates over syntax elements, used by the rule DSL and rule catalog
// to decide which spacing or indent rule applies to a given position in the concrete syntax tree.
package pattern

import (
	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/token"
)

// Pred is a predicate over a syntax element.
type Pred func(ncx.Element) bool

// Pattern matches a syntax element. When HasKinds is set, Matches checks membership in Kinds before
// calling Pred, so the predicate never runs for an element outside the kind set.
type Pattern struct {
	Kinds    token.KindSet
	HasKinds bool
	Pred     Pred
}

// Of builds a Pattern that matches exactly the given kind.
func Of(kind token.Kind) Pattern {
	return Pattern{
		Kinds:    token.NewKindSet(kind),
		HasKinds: true,
		Pred:     func(e ncx.Element) bool { return e.Kind() == kind },
	}
}

// OfKinds builds a Pattern that matches any of the given kinds.
func OfKinds(kinds ...token.Kind) Pattern {
	set := token.NewKindSet(kinds...)
	return Pattern{
		Kinds:    set,
		HasKinds: true,
		Pred:     func(e ncx.Element) bool { return set.Has(e.Kind()) },
	}
}

// FromPred builds a Pattern with no kind filter from an arbitrary predicate.
func FromPred(pred Pred) Pattern {
	return Pattern{Pred: pred}
}

// Matches reports whether p matches element.
func (p Pattern) Matches(e ncx.Element) bool {
	if p.HasKinds && !p.Kinds.Has(e.Kind()) {
		return false
	}
	if p.Pred == nil {
		return p.HasKinds
	}
	return p.Pred(e)
}

// And returns the conjunction of p and other. If both have kind sets, the result's kind set is
// their intersection; if only one does, that one is kept; if neither does, the result has none.
func (p Pattern) And(other Pattern) Pattern {
	result := Pattern{
		Pred: func(e ncx.Element) bool { return p.Matches(e) && other.Matches(e) },
	}
	switch {
	case p.HasKinds && other.HasKinds:
		result.Kinds = p.Kinds.Intersect(other.Kinds)
		result.HasKinds = true
	case p.HasKinds:
		result.Kinds = p.Kinds
		result.HasKinds = true
	case other.HasKinds:
		result.Kinds = other.Kinds
		result.HasKinds = true
	}
	return result
}

// ParentChild returns a Pattern matching an element whose parent matches parent and which itself
// matches child.
func ParentChild(parent, child Pattern) Pattern {
	return Pattern{
		Kinds:    child.Kinds,
		HasKinds: child.HasKinds,
		Pred: func(e ncx.Element) bool {
			if !child.Matches(e) {
				return false
			}
			p, ok := e.Parent()
			return ok && parent.Matches(p)
		},
	}
}

// Named associates a Pattern with a human-readable identity, used as the dispatch key in
// pattern-bucketed rule sets.
type Named interface {
	Pattern() Pattern
}

// Set is a bucketed collection of named patterns, supporting O(k) matching where k is the number
// of items potentially matching a given kind.
type Set[T Named] struct {
	byKind        map[token.Kind][]T
	unconstrained []T
}

// NewSet builds a Set from items, bucketing each by the kinds its pattern restricts to, or into
// the unconstrained list if it has no kind set.
func NewSet[T Named](items []T) *Set[T] {
	s := &Set[T]{byKind: make(map[token.Kind][]T)}
	for _, item := range items {
		pat := item.Pattern()
		if !pat.HasKinds {
			s.unconstrained = append(s.unconstrained, item)
			continue
		}
		for _, k := range pat.Kinds.Kinds() {
			s.byKind[k] = append(s.byKind[k], item)
		}
	}
	return s
}

// Matching yields items whose pattern matches element: first the bucket for element's kind, in
// insertion order, then the unconstrained items, in insertion order.
func (s *Set[T]) Matching(e ncx.Element) []T {
	var result []T
	for _, item := range s.byKind[e.Kind()] {
		if item.Pattern().Matches(e) {
			result = append(result, item)
		}
	}
	for _, item := range s.unconstrained {
		if item.Pattern().Matches(e) {
			result = append(result, item)
		}
	}
	return result
}
