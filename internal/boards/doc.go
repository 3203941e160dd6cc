// Package boards holds the in-memory board forest and its structural
// operations: lookup, pre-order flattening, merge validation, merge, and
// delete with or without cascade.
//
// Every operation takes the Tree explicitly. Storage side effects go through
// the Merger and Deleter ports so a failed validation or a failed storage call
// leaves the tree exactly as it was.
package boards
