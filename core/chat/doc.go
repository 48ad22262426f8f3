// Package chat holds the conversation Session: the transcript, the selected
// provider and the display theme for one user.
//
// A Session is passed explicitly to whatever drives it (the console loop or
// the HTTP handlers). Every action runs to completion, provider call
// included, before the next one starts:
//
//	session := chat.NewSession(dispatcher, chat.WithSystemPrompt(cfg.SystemPrompt))
//	answer, err := session.Send(ctx, "openai", "2+2?")
//	answer, err = session.Edit(ctx, "openai", 1, "3+3?")
package chat
