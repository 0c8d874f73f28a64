// Package variable adapts raw controller handles to typed values.
//
// A Variable wraps a RAPID data handle. Its Codec is chosen once, from the
// data type the controller reports for the symbol, and never changes:
//
//	string            -> string (quotes stripped)
//	bool              -> bool ("TRUE" and "1" decode as true)
//	num, dnum arrays  -> float64 or nested []any of float64
//	robtarget         -> rapid.RobTarget
//	jointtarget       -> rapid.JointTarget
//	anything else     -> the raw literal, untouched
//
// Value always reads from the controller. SetValue rejects inputs whose
// shape does not fit the declared type with a *TypeMismatchError.
//
// Change notifications are published on an eventbus topic. The handle
// receives exactly one internal listener no matter how many times OnChanged
// is called; every widget listener hangs off the bus topic instead.
//
// Signal is the same adapter for I/O signals.
package variable
