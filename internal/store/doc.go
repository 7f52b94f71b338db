// Package store provides persistent conversation history for coven-relay
// using SQLite.
//
// # Data Model
//
// One append-only table of turns keyed by user identifier. A Turn is one
// message exchange unit (role + content + timestamp). Turns for a fixed
// user are totally ordered by timestamp; retrieval never reorders them.
//
// # SQLite Configuration
//
// The store uses WAL mode for concurrent reads and full synchronous mode
// so every acknowledged append is durable:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA synchronous=FULL;
//
// # Error Handling
//
// Operations on a closed store fail wrapping ErrClosed. All other failures
// are wrapped storage errors; History never fails for unknown users.
//
// All methods accept context.Context for cancellation support.
package store
