// Package ai defines the vendor-agnostic types shared by the chat backends
// (OpenAI and Azure OpenAI, Gemini, Anthropic). Each backend maps these types
// to its own wire format, keeping the session and dispatch layers decoupled
// from vendor details.
//
// [Provider] covers synchronous completions and [StreamProvider] adds SSE
// streaming. Requests flow through [ChatRequest], answers come back as
// [ChatResponse] or as a [ChatStream] of [StreamEvent] deltas. A backend
// that lacks credentials reports a [*MissingConfigError] before touching the
// network.
package ai
