// Package api implements the HTTP client for the secrate-chat backend: the
// public-key directory, the message store, and the realtime event stream.
package api
