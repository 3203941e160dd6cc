// Package batch runs one operation over a selection of images.
//
// Items are processed strictly one after another in selection order; an
// item's operation settles before the next one starts. Each item's error or
// panic is captured and tallied, and the run always reaches the end of the
// selection unless its context is cancelled. A cancelled run lets the
// in-flight item finish and reports the rest as skipped.
package batch
