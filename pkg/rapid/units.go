package rapid

import "math"

// Millimeters is a length as reported by the controller.
type Millimeters float64

// Meters is a length in SI units.
type Meters float64

// Degrees is an angle as reported by the controller.
type Degrees float64

// Radians is an angle in SI units.
type Radians float64

// Meters converts to meters.
func (mm Millimeters) Meters() Meters { return Meters(mm / 1000) }

// Millimeters converts to millimeters.
func (m Meters) Millimeters() Millimeters { return Millimeters(m * 1000) }

// Radians converts to radians.
func (d Degrees) Radians() Radians { return Radians(float64(d) * math.Pi / 180) }

// Degrees converts to degrees.
func (r Radians) Degrees() Degrees { return Degrees(float64(r) * 180 / math.Pi) }
