package offsetmap

import (
	"github.com/rivo/uniseg"
)

// SnapToGrapheme adjusts a char offset in text so it never lands inside a
// grapheme cluster (a combined emoji renders as one unit; splitting it
// produces a broken cursor). The offset is measured in Unicode scalar
// values from the start of text.
func SnapToGrapheme(text string, off int, snap SnapDirection) int {
	if off <= 0 {
		return 0
	}

	state := -1
	rest := text
	boundary := 0 // char offset of the current cluster start
	for len(rest) > 0 {
		cluster, tail, _, next := uniseg.StepString(rest, state)
		clusterChars := len([]rune(cluster))

		if off < boundary+clusterChars {
			if off == boundary {
				return off
			}
			// Inside the cluster: snap to an edge.
			if snap == SnapBackward {
				return boundary
			}
			return boundary + clusterChars
		}

		boundary += clusterChars
		rest = tail
		state = next
	}
	return boundary
}
