// Package subscription implements the reference-counted subscription
// registry.
//
// The controller charges for every subscribed resource, and every widget on
// a panel wants to watch some variable or signal. The registry keeps at most
// one underlying subscription per key and hands the shared instance to every
// caller that acquires it.
//
// # Lifecycle
//
// An entry is created on the first Acquire for a key. While the instance is
// being created and subscribed the entry is pending; concurrent Acquire
// calls for the same key wait for it and share the result. Each successful
// Acquire must be paired with a Release. When the count reaches zero the
// underlying handle is unsubscribed and the entry removed. Releasing an
// unknown key is a no-op.
//
// If subscribing fails the entry is dropped and every waiting caller gets an
// error wrapping ErrSubscriptionFailed. No partial entry remains.
//
// # Fan-out
//
// Each entry owns one topic on the registry's event bus (the key's String
// form). Instances publish decoded changes on that topic; widget callbacks
// registered with On receive them. The registry keeps the last published
// value as the entry's cache.
//
// # Blocking
//
// SetBlocked(true) acts as an administrative kill-switch: new entries are
// created without subscribing, and a warning is logged instead.
package subscription
