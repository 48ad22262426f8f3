package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across different components of the system.

// --- LLM Provider Attributes ---

const (
	// AttrLLMProvider is the name of the LLM provider (e.g., "openai", "anthropic")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier (e.g., "gpt-3.5-turbo")
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMResponseID is the unique response identifier from the provider
	AttrLLMResponseID = "llm.response.id"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMStreaming marks requests that use the SSE endpoint
	AttrLLMStreaming = "llm.streaming"

	// AttrLLMTokensTotal is the total number of tokens
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- Not a credential, token refers to LLM tokens
)

// --- Request/Response Attributes ---

const (
	// AttrRequestMessagesCount is the number of messages in the request
	AttrRequestMessagesCount = "request.messages_count"

	// AttrResponseLength is the length of the extracted response text
	AttrResponseLength = "response.length"
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Memory Attributes ---

const (
	// AttrMemoryMessageRole is the role of the message being stored
	AttrMemoryMessageRole = "memory.message.role"

	// AttrMemoryMessageLength is the length of the message content
	AttrMemoryMessageLength = "memory.message.length"

	// AttrMemoryMessageIndex is the index of an edited message
	AttrMemoryMessageIndex = "memory.message.index"

	// AttrMemoryTotalMessages is the total number of messages in memory
	AttrMemoryTotalMessages = "memory.total_messages"

	// AttrMemoryDiscarded is the number of messages removed by an edit
	AttrMemoryDiscarded = "memory.discarded"
)

// --- Chat Attributes ---

const (
	// AttrChatSessionID identifies the session an operation belongs to
	AttrChatSessionID = "chat.session.id"

	// AttrChatPlaceholder marks dispatches answered without a provider call
	AttrChatPlaceholder = "chat.placeholder"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanChatDispatch is the span name for one provider dispatch
	SpanChatDispatch = "chat.dispatch"

	// SpanChatSend covers appending a user message and the dispatch answering it
	SpanChatSend = "chat.send"

	// SpanChatEdit covers an edit, the truncation and the resend
	SpanChatEdit = "chat.edit"
)

// --- Event Names ---

const (
	// EventLLMRequestStart marks the start of an LLM request
	EventLLMRequestStart = "llm.request.start"

	// EventLLMRequestEnd marks the end of an LLM request
	EventLLMRequestEnd = "llm.request.end"

	// EventMemoryAppend marks when a message is appended to memory
	EventMemoryAppend = "memory.append"

	// EventMemoryEdit marks an edit followed by truncation
	EventMemoryEdit = "memory.edit"

	// EventMemoryClear marks when memory is cleared
	EventMemoryClear = "memory.clear"
)

// --- Metric Names ---

const (
	// MetricDispatchCount counts dispatches by provider
	MetricDispatchCount = "chat.dispatch.count"

	// MetricDispatchPlaceholder counts dispatches answered with a placeholder
	MetricDispatchPlaceholder = "chat.dispatch.placeholder"

	// MetricDispatchDuration is the histogram for dispatch latency in milliseconds
	MetricDispatchDuration = "chat.dispatch.duration_ms"
)
