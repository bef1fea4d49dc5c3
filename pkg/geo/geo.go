// Package geo defines the external geolocation and battery collaborators a
// device samples position and power state from.
package geo

import (
	"context"
	"time"
)

// Fix is a single position sample. An Unavailable Fix means the platform
// source returned nothing for this poll.
type Fix struct {
	Time       time.Time
	Latitude   float64
	Longitude  float64
	Speed      float64
	Course     float64
	Altitude   float64
	Satellites int
	HasFix     bool
}

// Unavailable reports whether the source produced no fix this poll.
func (f Fix) Unavailable() bool { return !f.HasFix }

// Source is the platform geolocation collaborator. Implementations wrap a
// GPS chip, OS location service, or an IP geolocation lookup.
type Source interface {
	Sample(ctx context.Context) (Fix, error)
}

// Battery is the platform battery-probe collaborator.
type Battery interface {
	Percent(ctx context.Context) (float64, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) (Fix, error)

func (f SourceFunc) Sample(ctx context.Context) (Fix, error) { return f(ctx) }

// BatteryFunc adapts a plain function to Battery.
type BatteryFunc func(ctx context.Context) (float64, error)

func (f BatteryFunc) Percent(ctx context.Context) (float64, error) { return f(ctx) }

// Unavailable is a Source that always reports no fix, useful as a default
// when no platform collaborator is wired in.
var Unavailable Source = SourceFunc(func(ctx context.Context) (Fix, error) {
	return Fix{}, nil
})
