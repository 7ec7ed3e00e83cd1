// Package delivery implements how the client learns about new message
// records: a realtime SSE stream, adaptive polling, or automatic selection
// between the two. Strategies only surface change events; fetching and
// decrypting records is the caller's job.
package delivery
