// Package anthropic implements the chat backend for Anthropic's Messages API.
//
// System messages of the transcript are lifted into the request's separate
// system field. Answers are the concatenation of every text content block.
// [New] reads ANTHROPIC_API_KEY and ANTHROPIC_API_BASE_URL from the environment.
package anthropic
