// Package dispatch routes a transcript to the provider backend registered
// under a name and returns the next assistant message.
//
// Backends that lack credentials, and names nobody registered, never reach
// the network: the dispatcher answers with a bracketed placeholder such as
// "[OPENAI_API_KEY missing]" or "[Unsupported provider]" which callers store
// in the transcript like any other answer.
//
// Streaming dispatches feed every content fragment to a Sink as it arrives:
//
//	content, err := d.Stream(ctx, "openai", messages, func(fragment string) error {
//		_, err := io.WriteString(os.Stdout, fragment)
//		return err
//	})
package dispatch
