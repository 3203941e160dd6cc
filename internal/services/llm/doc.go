// Package llm talks to an OpenAI-compatible chat completions endpoint, by
// default a local LM Studio server.
//
// It is used for two things:
//   - Image analysis: a vision request that returns a description, tags, and
//     a suggested filename for one image, in one of several prompt styles.
//   - Board suggestions: a text request that proposes where an image belongs
//     in the board tree, decoded into a suggest.Suggestion.
//
// # Replies
//
// Models often wrap JSON in code fences or prose. DecodeLLMJSON strips both
// before decoding. An analysis reply with no JSON at all is kept verbatim as
// the description.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty replies, and network
// timeouts with exponential backoff (base 1s, max 10s), honouring
// Retry-After. Context cancellation aborts retries immediately.
//
// # Circuit Breaker
//
// Consecutive failed calls (breaker_failures, default 5) open a circuit
// breaker; further calls fail fast with services.ErrTransport until the
// cooldown passes. A batch run against a dead endpoint therefore fails its
// remaining items quickly instead of waiting out every timeout.
//
// HealthCheck lists the endpoint's models and is what `curator llm check` runs.
package llm
