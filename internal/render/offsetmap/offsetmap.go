// Package offsetmap resolves document offsets against a paragraph's
// rendered offset map.
//
// An offset that falls outside every mapping lies on hidden or collapsed
// syntax and has no rendered position; callers resolve it to the nearest
// valid position with a snap direction hint.
package offsetmap

import (
	"sort"

	"github.com/dshills/inkwell/internal/render"
)

// SnapDirection hints which way to resolve an offset that has no rendered
// position.
type SnapDirection uint8

const (
	// SnapForward prefers the next valid position toward document end.
	SnapForward SnapDirection = iota

	// SnapBackward prefers the previous valid position.
	SnapBackward
)

// Position is a resolved rendered position: a leaf node plus an intra-node
// char offset.
type Position struct {
	NodeID     int
	ChildIndex int
	Offset     int // chars into the node's text
}

// FindMappingForChar binary-searches for the mapping containing the char
// offset. The end of a mapping counts as inside, matching cursor
// placement after the last char of a leaf.
func FindMappingForChar(mappings []render.OffsetMapping, off int) (render.OffsetMapping, bool) {
	i := sort.Search(len(mappings), func(i int) bool {
		return mappings[i].CharRange.End >= off
	})
	if i < len(mappings) && mappings[i].CharRange.ContainsInclusive(off) {
		return mappings[i], true
	}
	return render.OffsetMapping{}, false
}

// FindMappingForByte binary-searches for the mapping containing the byte
// offset.
func FindMappingForByte(mappings []render.OffsetMapping, off int) (render.OffsetMapping, bool) {
	i := sort.Search(len(mappings), func(i int) bool {
		return mappings[i].ByteRange.End >= off
	})
	if i < len(mappings) && off >= mappings[i].ByteRange.Start && off <= mappings[i].ByteRange.End {
		return mappings[i], true
	}
	return render.OffsetMapping{}, false
}

// Resolve converts a char offset to a rendered position, or reports false
// when the offset lies on hidden syntax.
func Resolve(mappings []render.OffsetMapping, off int) (Position, bool) {
	m, ok := FindMappingForChar(mappings, off)
	if !ok {
		return Position{}, false
	}
	return Position{
		NodeID:     m.NodeID,
		ChildIndex: m.ChildIndex,
		Offset:     m.CharOffsetInNode + (off - m.CharRange.Start),
	}, true
}

// FindNearestValidPosition resolves an offset that may lie on hidden
// syntax to the nearest valid char offset, snapping in the hinted
// direction. When no position exists in the hinted direction the other
// direction is used; when both directions are candidates at equal
// distance the hint wins (ties with no hint snap forward). Returns false
// only when the paragraph has no rendered content at all.
func FindNearestValidPosition(mappings []render.OffsetMapping, off int, snap SnapDirection) (int, bool) {
	if len(mappings) == 0 {
		return 0, false
	}
	if _, ok := FindMappingForChar(mappings, off); ok {
		return off, true
	}

	next, hasNext := -1, false
	prev, hasPrev := -1, false
	for _, m := range mappings {
		if m.CharRange.Start >= off && !hasNext {
			next, hasNext = m.CharRange.Start, true
		}
		if m.CharRange.End <= off {
			prev, hasPrev = m.CharRange.End, true
		}
	}

	switch {
	case hasNext && hasPrev:
		if snap == SnapBackward {
			return prev, true
		}
		return next, true
	case hasNext:
		return next, true
	default:
		return prev, true
	}
}
