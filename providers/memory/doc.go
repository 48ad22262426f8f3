// Package memory defines the transcript store used by a chat session: an
// ordered list of [ai.Message] values that can be appended to, and edited
// with truncation of everything after the edited message.
//
// The bundled implementation lives in the sibling package
// [github.com/leofalp/aichat/providers/memory/inmemory].
package memory
