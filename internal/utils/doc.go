// Package utils provides the low-level HTTP helpers shared by the vendor
// backends: [DoPostSync] for JSON round-trips, [DoPostStream] together with
// [SSEScanner] for Server-Sent Events, and a few string helpers used when
// rendering transcripts and error bodies.
package utils
