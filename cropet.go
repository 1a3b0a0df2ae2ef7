/*
Copyright © 2017 the CropET authors.
This file is part of CropET.

CropET is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

CropET is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with CropET.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package cropet simulates daily crop evapotranspiration, net irrigation
// water requirements and the soil water balance of crops grown in
// geographic ET cells.
//
// Each (cell, crop) pair is advanced one day at a time by a Pair, which
// owns the mutable CycleState. A Simulation runs many pairs concurrently
// sharing read-only cell, crop and climate data.
package cropet

import (
	"fmt"
	"strings"
	"time"
)

// Version gives the version number.
const Version = "0.4.1"

// RefETType is the kind of reference evapotranspiration driving a run.
type RefETType int

// Reference evapotranspiration types.
const (
	ETo RefETType = iota // grass reference
	ETr                  // alfalfa reference
)

func (t RefETType) String() string {
	if t == ETr {
		return "ETr"
	}
	return "ETo"
}

// ParseRefETType parses "ETo" or "ETr" (case-insensitive).
func ParseRefETType(s string) (RefETType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eto":
		return ETo, nil
	case "etr":
		return ETr, nil
	}
	return ETo, &ConfigError{Option: "refet_type", Msg: fmt.Sprintf("invalid reference ET type %q; must be ETo or ETr", s)}
}

// PhenologyOption selects which weather station drives phenology.
type PhenologyOption int

// Phenology options.
const (
	MainPhenology        PhenologyOption = iota // main series for all crops
	AltAnnualPhenology                          // alternate series for annual crops only
	AltPerennialPhenology                       // alternate series for perennial crops only
	AltPhenology                                // alternate series for all crops
)

// usesAlt reports whether crops of the given kind use the alternate series.
func (o PhenologyOption) usesAlt(annual bool) bool {
	switch o {
	case AltAnnualPhenology:
		return annual
	case AltPerennialPhenology:
		return !annual
	case AltPhenology:
		return true
	}
	return false
}

// Options holds the model settings shared by every pair in a run.
type Options struct {
	RefET RefETType

	// CO2Correction enables scaling of basal crop coefficients by the
	// per-category CO2 factors in the weather record.
	CO2Correction bool

	Phenology PhenologyOption

	// Start and End bound the simulated dates, both inclusive.
	// Zero values mean the start or end of the weather record.
	Start, End time.Time

	// PlantingWindowDays is the half-width of the window around the
	// long-term planting date in which annual crops may be planted.
	PlantingWindowDays int

	// SurfaceThickness is the thickness of the evaporation layer used
	// to partition transpiration out of it [m].
	SurfaceThickness float64

	// RoundDecimals is the number of decimals used when checking whether
	// water remaining in the evaporation layer has reached zero.
	RoundDecimals int

	// WinterCoverKcb holds basal crop coefficients for the bare, mulch
	// and sod winter cover classes (indices 1 to 3).
	WinterCoverKcb [4]float64

	// IrrMin is the minimum net depth of an automatic irrigation [mm].
	IrrMin float64
}

// DefaultOptions returns the default model settings.
func DefaultOptions() *Options {
	return &Options{
		RefET:              ETo,
		PlantingWindowDays: 40,
		SurfaceThickness:   1e-4,
		RoundDecimals:      6,
		WinterCoverKcb:     [4]float64{0, 0.1, 0.1, 0.1},
		IrrMin:             10,
	}
}

// Validate checks that the settings are usable.
func (o *Options) Validate() error {
	if o.Phenology < MainPhenology || o.Phenology > AltPhenology {
		return &ConfigError{Option: "phenology_option", Msg: fmt.Sprintf("%d is not between 0 and 3", o.Phenology)}
	}
	if !o.Start.IsZero() && !o.End.IsZero() && o.End.Before(o.Start) {
		return &ConfigError{Option: "end_date", Msg: "end date is before start date"}
	}
	if o.PlantingWindowDays < 0 {
		return &ConfigError{Option: "planting_window_days", Msg: "must not be negative"}
	}
	if !(o.SurfaceThickness > 0) {
		return &ConfigError{Option: "surface_thickness", Msg: "must be > 0"}
	}
	if o.RoundDecimals < 0 {
		return &ConfigError{Option: "round_decimals", Msg: "must not be negative"}
	}
	for i := 1; i < len(o.WinterCoverKcb); i++ {
		if o.WinterCoverKcb[i] < 0 || o.WinterCoverKcb[i] > 1 {
			return &ConfigError{Option: "winter_cover_kcb", Msg: fmt.Sprintf("class %d Kcb %g is outside [0, 1]", i, o.WinterCoverKcb[i])}
		}
	}
	if o.IrrMin < 0 {
		return &ConfigError{Option: "irr_min", Msg: "must not be negative"}
	}
	return nil
}
