// Package router connects the Telegram update stream to the AI backend. For
// each message it reads the user's recent history, builds a prompt, dispatches
// it, persists the exchange, and sends the reply with formatting fallback.
package router
