// Package telegram is a minimal Telegram Bot API client covering exactly
// the surface the relay needs: identity lookup, webhook control, long-poll
// update fetching, and message/typing sends. Request failures are
// structured (*RequestError) so session conflicts and poll timeouts are
// classified here rather than by string-matching downstream.
package telegram
