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

package cropet

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// CoverClass is a winter surface cover class.
type CoverClass int

// Winter surface cover classes.
const (
	Bare  CoverClass = 1
	Mulch CoverClass = 2
	Sod   CoverClass = 3
)

// winterCover holds the crop coefficient envelope and cover fraction
// of each winter cover class.
var winterCover = [4]struct {
	kcMaxETo, kcMaxETr, fc float64
}{
	Bare:  {1.1, 0.9, 0.0},
	Mulch: {1.0, 0.85, 0.4},
	Sod:   {0.95, 0.8, 0.7},
}

func (c CoverClass) kcMax(ref RefETType) float64 {
	if ref == ETr {
		return winterCover[c].kcMaxETr
	}
	return winterCover[c].kcMaxETo
}

func (c CoverClass) fc() float64 { return winterCover[c].fc }

// StressMode controls how water stress reduces transpiration.
type StressMode int

// Stress modes.
const (
	NoStress            StressMode = 0 // water stress is ignored
	UnrecoverableStress StressMode = 1 // severe stress ends transpiration for the season
	RecoverableStress   StressMode = 2
)

// PhenologySignal is the signal compared against a crop's planting or
// green-up threshold.
type PhenologySignal int

// Phenology signals.
const (
	CGDDSignal PhenologySignal = 1 // cumulative GDD since January 1
	T30Signal  PhenologySignal = 2 // 30-day mean temperature
)

// CO2Category selects which CO2 correction factor applies to a crop.
type CO2Category int

// CO2 categories.
const (
	CO2None CO2Category = iota
	CO2Grass
	CO2Tree
	CO2C4
)

func parseCO2Category(s string) (CO2Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CO2None, nil
	case "grass":
		return CO2Grass, nil
	case "tree":
		return CO2Tree, nil
	case "c4":
		return CO2C4, nil
	}
	return CO2None, fmt.Errorf("unknown CO2 category %q", s)
}

// CropParams are the static parameters of one crop class.
type CropParams struct {
	ClassNumber int    `toml:"class_number"`
	Name        string `toml:"name"`

	IsAnnual    bool `toml:"is_annual"`
	WinterGrain bool `toml:"winter_grain"`

	// CuttingCycles restarts the coefficient curve of a perennial each
	// time it completes, as for hay crops that are cut several times.
	CuttingCycles bool `toml:"cutting_cycles"`

	IrrigationFlag          int        `toml:"irrigation_flag"`
	WinterSurfaceCoverClass CoverClass `toml:"winter_surface_cover_class"`

	KcMax        float64 `toml:"kc_max"`        // 0 means use the default
	MADInitial   float64 `toml:"mad_initial"`   // %
	MADMidseason float64 `toml:"mad_midseason"` // %

	RootDepthInitial        float64 `toml:"root_depth_initial"` // m
	RootDepthMax            float64 `toml:"root_depth_max"`     // m
	EndOfRootGrowthFraction float64 `toml:"end_of_root_growth_fraction_time"`
	HeightInitial           float64 `toml:"height_initial"` // m
	HeightMax               float64 `toml:"height_max"`     // m

	CurveType   CurveType `toml:"curve_type"`
	Kcb         []float64 `toml:"kcb"`
	KcbGDD      []float64 `toml:"kcb_gdd"` // knots for curve type 4
	CurveNumber float64   `toml:"curve_number"`
	CNCoarse    float64   `toml:"cn_coarse_soil"`
	CNMedium    float64   `toml:"cn_medium_soil"`
	CNFine      float64   `toml:"cn_fine_soil"`

	PhenologySignal    PhenologySignal `toml:"flag_for_means_to_estimate_pl_or_gu"`
	PlantingThreshold  float64         `toml:"t30_for_pl_or_gu_or_cgdd"`
	TBase              float64         `toml:"tbase"` // °C
	CGDDForEFC         float64         `toml:"cgdd_for_efc"`
	CGDDForTermination float64         `toml:"cgdd_for_termination"`
	TimeForEFC         float64         `toml:"time_for_efc"`     // days
	TimeForHarvest     float64         `toml:"time_for_harvest"` // days
	KillingFrost       float64         `toml:"killing_frost_temperature"`
	DOYSeasonEnd       int             `toml:"doy_season_end"` // perennials; 0 for none

	InvokeStress                StressMode `toml:"invoke_stress"`
	DaysAfterPlantingIrrigation float64    `toml:"days_after_planting_irrigation"`
	CropFW                      float64    `toml:"crop_fw"`
	CO2Type                     string     `toml:"co2_category"`
}

// SurfaceMode is the kind of surface a crop class represents.
// It is one of CropSurface, WinterCover or OpenWater.
type SurfaceMode interface {
	surfaceMode()
}

// CropSurface is a growing crop.
type CropSurface struct{}

// WinterCover is a surface that stays in its winter cover class all year.
type WinterCover struct{ Class CoverClass }

// OpenWater is a free water surface that evaporates at the reference rate.
type OpenWater struct{}

func (CropSurface) surfaceMode() {}
func (WinterCover) surfaceMode() {}
func (OpenWater) surfaceMode() {}

// modeFor returns the surface mode of a crop class number.
func modeFor(class int) SurfaceMode {
	switch class {
	case 44, 45, 46:
		return WinterCover{Class: CoverClass(class - 43)}
	case 55, 56, 57:
		return OpenWater{}
	}
	return CropSurface{}
}

// Crop is a validated crop class ready for simulation.
type Crop struct {
	CropParams
	Mode  SurfaceMode
	Curve Curve
	CO2   CO2Category
}

// NewCrop validates p and prepares it for simulation.
func NewCrop(p CropParams) (*Crop, error) {
	opt := fmt.Sprintf("crop %d", p.ClassNumber)
	c := &Crop{CropParams: p, Mode: modeFor(p.ClassNumber)}
	if p.ClassNumber < 1 {
		return nil, &ConfigError{Option: opt, Msg: "class_number must be positive"}
	}
	if p.WinterSurfaceCoverClass < Bare || p.WinterSurfaceCoverClass > Sod {
		return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("winter_surface_cover_class %d not in 1-3", p.WinterSurfaceCoverClass)}
	}
	if !(p.MADMidseason > 0 && p.MADMidseason <= 100) {
		return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("mad_midseason %g not in (0, 100]", p.MADMidseason)}
	}
	if p.MADInitial <= 0 {
		c.MADInitial = p.MADMidseason
	} else if p.MADInitial > 100 {
		return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("mad_initial %g > 100", p.MADInitial)}
	}
	if !(p.RootDepthInitial > 0) || p.RootDepthMax < p.RootDepthInitial {
		return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("root depths %g to %g m are invalid", p.RootDepthInitial, p.RootDepthMax)}
	}
	if p.HeightInitial < 0 || p.HeightMax < p.HeightInitial {
		return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("heights %g to %g m are invalid", p.HeightInitial, p.HeightMax)}
	}
	if p.InvokeStress < NoStress || p.InvokeStress > RecoverableStress {
		return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("invoke_stress %d not in 0-2", p.InvokeStress)}
	}
	if p.CropFW <= 0 || p.CropFW > 1 {
		c.CropFW = 1
	}
	var err error
	if c.CO2, err = parseCO2Category(p.CO2Type); err != nil {
		return nil, &ConfigError{Option: opt, Msg: err.Error()}
	}
	if _, ok := c.Mode.(CropSurface); !ok {
		return c, nil
	}
	if p.PhenologySignal != CGDDSignal && p.PhenologySignal != T30Signal {
		return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("flag_for_means_to_estimate_pl_or_gu %d not 1 or 2", p.PhenologySignal)}
	}
	if c.Curve, err = newCurve(&c.CropParams); err != nil {
		return nil, err
	}
	return c, nil
}

// CurveNumberFor returns the AMC II curve number for a hydrologic soil group.
func (c *Crop) CurveNumberFor(g HydGroup) float64 {
	var cn float64
	switch g {
	case Coarse:
		cn = c.CNCoarse
	case Medium:
		cn = c.CNMedium
	case Fine:
		cn = c.CNFine
	}
	if cn > 0 {
		return cn
	}
	return c.CurveNumber
}

// LoadCrops reads crop classes from a TOML document containing a list of
// [[crop]] tables. Real-valued parameters must be written with a
// decimal point.
func LoadCrops(r io.Reader, log logrus.FieldLogger) (map[int]*Crop, error) {
	var doc struct {
		Crop []CropParams `toml:"crop"`
	}
	md, err := toml.DecodeReader(r, &doc)
	if err != nil {
		return nil, &ConfigError{Option: "crops", Msg: err.Error()}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 && log != nil {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		log.WithField("keys", keys).Warn("ignoring unknown crop parameters")
	}
	crops := make(map[int]*Crop, len(doc.Crop))
	for _, p := range doc.Crop {
		if _, ok := crops[p.ClassNumber]; ok {
			return nil, &ConfigError{Option: "crops", Msg: fmt.Sprintf("crop %d is defined more than once", p.ClassNumber)}
		}
		c, err := NewCrop(p)
		if err != nil {
			return nil, err
		}
		crops[p.ClassNumber] = c
	}
	if len(crops) == 0 {
		return nil, &ConfigError{Option: "crops", Msg: "no crops defined"}
	}
	return crops, nil
}

// CropNumbers returns the sorted class numbers in crops.
func CropNumbers(crops map[int]*Crop) []int {
	o := make([]int, 0, len(crops))
	for n := range crops {
		o = append(o, n)
	}
	sort.Ints(o)
	return o
}
