// Package render implements paragraph-granular incremental rendering of
// markdown source to HTML.
//
// The unit of work is the paragraph (a blank-line delimited run of lines).
// Each rendered paragraph carries an offset map relating source char and
// byte offsets to rendered leaf nodes, and the set of syntax marker spans
// the visibility layer decides to show or hide. A cheap content hash per
// paragraph lets the cache reuse untouched paragraphs byte-for-byte and
// shift trailing paragraphs without re-rendering their HTML.
package render
