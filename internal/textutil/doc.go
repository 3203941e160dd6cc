// Package textutil provides text processing helpers shared by the library,
// analysis, and suggestion packages.
//
// The primary use cases are:
//   - Turning model-suggested names into safe, ASCII-only filenames
//   - Normalizing and de-duplicating tags
//   - Building token fingerprints of descriptions for related-image ranking
package textutil
