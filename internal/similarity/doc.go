// Package similarity finds related images and memoises the answers for a
// session.
package similarity
