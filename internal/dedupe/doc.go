// Package dedupe provides update deduplication using a time-based cache
// so that a message redelivered after a drain is only handled once.
package dedupe
