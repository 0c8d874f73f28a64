// Package rapid models RAPID data values as exchanged with the controller.
//
// The controller transports every RAPID value as a literal string: strings
// are quoted ("abc"), bools are TRUE/FALSE, numbers use RAPID number syntax
// (1, -0.5, 9E+09) and aggregates are bracketed lists of their components.
// This package converts between those literals and Go values.
//
// # Numeric values
//
// ParseNumeric returns either a float64 (scalar) or a []any whose elements
// are themselves float64 or []any (arrays and numeric records such as pos or
// orient). FormatNumeric accepts the same shapes as well as ordinary Go
// numeric types and slices of them.
//
// # Units
//
// Lengths and angles carry explicit types. The controller reports robtarget
// positions in Millimeters and jointtarget axes in Degrees; conversions to
// Meters and Radians are explicit method calls.
package rapid
