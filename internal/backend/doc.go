// Package backend dispatches prompts to an AI text-completion backend.
//
// Two modes are supported behind one Dispatch operation: a direct HTTP
// completion endpoint, and an external CLI harness run as a subprocess.
// The configured model identifier selects the mode; a namespace/-prefixed
// model routes through the harness.
//
// Both modes share a 60-second wall-clock budget and ANSI output
// sanitization. Failures are classified once, at the boundary where the
// raw error is observed, into the closed Kind taxonomy carried by *Error.
package backend
