// Package suggest turns classifier output into board placements.
//
// A Suggestion is validated and mapped onto a Mode by fixed confidence
// thresholds: at or above 0.85 the plan is applied immediately, from 0.70 up
// to 0.85 it is offered to a Confirmer, and below 0.70 it is dropped. Apply
// performs the writes best-effort: a failed board creation halts the plan,
// while independent membership writes may partially succeed.
package suggest
