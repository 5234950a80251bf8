// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import (
	"fmt"
	"math"
)

// Limits bounds the commands accepted for transmission
type Limits struct {
	MaxAbs float64 // Largest accepted |x| and |y| in millimetres
}

// DefaultLimits returns the default coordinate bounds
func DefaultLimits() Limits {
	return Limits{MaxAbs: DefaultCoordinateLimit}
}

// ValidateCommand checks a command against the limits.
// Returns a *ValidationError for rejected commands, nil otherwise.
func ValidateCommand(c Command, l Limits) error {
	switch c.Kind {
	case CmdMove:
		if err := validateCoordinate("x", c.X, l); err != nil {
			return err
		}
		return validateCoordinate("y", c.Y, l)

	case CmdMotors, CmdPen, CmdOriginSet, CmdOriginGoto:
		return nil
	}

	return &ValidationError{
		Field:   "kind",
		Value:   float64(c.Kind),
		Message: "unknown command kind",
	}
}

func validateCoordinate(field string, v float64, l Limits) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Value: v, Message: "coordinate is not finite"}
	}
	if l.MaxAbs > 0 && math.Abs(v) > l.MaxAbs {
		return &ValidationError{
			Field:   field,
			Value:   v,
			Message: fmt.Sprintf("outside ±%g mm", l.MaxAbs),
		}
	}
	return nil
}

// Area is a rectangular work area used to clamp interactive moves
type Area struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// DefaultArea is the Blot drawing surface in millimetres
func DefaultArea() Area {
	return Area{MinX: 0, MaxX: 125, MinY: 0, MaxY: 125}
}

// Clamp limits (x, y) to the area
func (a Area) Clamp(x, y float64) (float64, float64) {
	return clamp(x, a.MinX, a.MaxX), clamp(y, a.MinY, a.MaxY)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
