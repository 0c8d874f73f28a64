// Package mastership serializes write access to the controller's exclusive
// mastership domains.
//
// Each domain ("edit", "motion") runs its own state machine:
//
//	Free -> Requesting -> Held -> Releasing -> Free
//
// A failed request falls back from Requesting to Free. Concurrent Request
// calls for a domain collapse into one HTTP request. Once a domain is Held,
// further Request calls only count holders; the controller lock is released
// when the last holder calls Release.
//
// # Remote access
//
// In manual mode the teach pendant may own the lock. The coordinator then
// asks for remote access (RMMP) first and polls the controller until the
// operator grants or rejects it. Timeout and rejection are reported as
// distinct reasons. In automatic mode a lock held by the pendant fails fast.
//
// # Release
//
// Release runs on a context detached from the caller's cancellation and
// never returns an error: failures are logged and captured by the protocol
// recorder. WithMastership releases on every exit path, including panics.
package mastership
