// Package poller owns the Telegram long-poll session: webhook teardown at
// startup, backlog draining, the getUpdates loop, and automatic recovery when
// a competing consumer triggers a 409 conflict.
//
// Exactly one poll session may exist per bot token. The poller assumes it is
// the rightful owner: on conflict it deletes the webhook, waits for Telegram
// to release the session lock, and retries a bounded number of times before
// parking in a failed state.
package poller
