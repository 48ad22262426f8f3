// Package repl runs the interactive console: it prints the transcript,
// reads a line, and either sends it or edits an earlier user message,
// streaming the answer to the terminal as it arrives.
package repl
