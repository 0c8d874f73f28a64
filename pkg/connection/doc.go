// Package connection keeps the controller's server-push channel alive.
//
// A Supervisor owns the lifecycle of one channel. The caller supplies a
// DialFunc that (re)creates the subscription group and opens its websocket;
// the supervisor calls it once on Connect and again, paced by a Policy,
// whenever the caller reports the channel as lost.
//
// # Retry Policy
//
// The nth retry waits
//
//	base(n)  = min(Initial * Multiplier^(n-1), Max)
//	delay(n) = base(n) * (1 + Jitter * u),  u uniform in [-1, 1)
//
// With the defaults that is 500ms, 1s, 2s, 4s, 8s, 16s and then 30s for
// every further attempt, each spread by up to 25% in either direction so
// that panels sharing a rebooted controller do not reconnect in lockstep.
//
// A successful dial resets the attempt counter. Dial errors for which
// Config.Fatal returns true (an expired or rejected login, for example)
// end recovery immediately instead of retrying.
package connection
