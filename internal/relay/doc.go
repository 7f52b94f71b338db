// Package relay wires the application together: the SQLite conversation
// store, the Telegram client and poller, the AI backend dispatcher, and the
// health endpoint, with one Run call owning the whole lifecycle.
package relay
