// Package web serves a single chat session over HTTP: an HTML page listing
// the transcript with a form to send or edit messages.
package web
