// Package openai implements the chat backends that speak the
// /chat/completions wire format: OpenAI itself ([New]) and Azure-hosted
// deployments ([NewAzure]). Both read their settings from the environment
// and accept overrides through the builder methods.
//
// Streaming is available through StreamMessage, which returns an
// [ai.ChatStream] iterator over incremental SSE events.
package openai
