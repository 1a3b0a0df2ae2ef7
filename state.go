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
	"encoding/gob"
	"fmt"
	"io"
	"time"
)

// CycleState is the mutable state of one (cell, crop) pair. It is owned
// by a single Pair and advanced one day at a time.
type CycleState struct {
	// Soil water.
	AW       float64 // available water [mm/m]
	TEW      float64 // total evaporable water [mm]
	TEW2     float64 // TEW at the end of stage 2 drying [mm]
	TEW3     float64 // TEW at the end of stage 3 drying [mm]
	REW      float64 // readily evaporable water [mm]
	Kr2      float64 // evaporation reduction at the start of stage 3
	DeplZe   float64 // evaporation layer depletion under irrigation-wetted ground [mm]
	DeplZep  float64 // evaporation layer depletion under precipitation-wetted ground [mm]
	DeplRoot float64 // root zone depletion [mm]
	AW3      float64 // water held between the root zone and the maximum root depth [mm/m]

	// Geometry.
	Zr, ZrMin, ZrMax                  float64 // root depth [m]
	Height, HeightMin, HeightMax      float64 // m
	Fc                                float64 // fraction of ground covered
	KcBas, KcAct, KcPot, KcMax, KcMin float64

	// KcbWSCC holds the basal coefficients of the winter cover classes.
	KcbWSCC [4]float64

	// Wetting.
	FwStd, FwSpec, FwIrr float64
	WtIrr                float64
	Few, Fewp            float64

	// Day-scoped fluxes [mm].
	PptInf, PptInfPrev     float64
	Sro                    float64
	DPerc                  float64
	IrrSim, IrrSimPrev     float64
	IrrAuto                float64
	NIWR                   float64
	EtcAct, EtcPot, EtcBas float64

	// IrrStdPrev and IrrSpecPrev record whether yesterday had a standard
	// (automatic or real) or a special (manual or special) irrigation.
	IrrStdPrev, IrrSpecPrev bool

	// Phenology.
	GDD, CGDD      float64
	CycleStart     time.Time // first day of the current cycle
	CycleDays      float64   // days since CycleStart
	Cycle          int       // cutting cycle within the season, from 1
	Fraction       float64   // position along the coefficient curve
	LongtermPL     int       // climatological planting or green-up day of year
	InSeason       bool
	SeasonYear     int // calendar year of the last season start
	ReachedEFC     bool
	DormantPending bool
	StressEvent    bool
	Cutting        bool

	// Evaporation since the last irrigation [mm].
	CumEvap, CumEvapPrev float64

	// Controls.
	IrrFlag             bool
	IrrMin              float64 // mm
	MAD, MADIni, MADMid float64 // %
	CN2                 float64

	// SeasonDays counts in-season days in the calendar year of LastDate.
	SeasonDays int

	// Skipped reports that the water balance of LastDate was skipped.
	Skipped bool

	// Totals accumulates the results of every day simulated, including
	// those before a checkpoint.
	Totals Totals

	// LastDate is the last day the state was advanced through.
	LastDate time.Time
}

// TAW returns the total available water in the root zone [mm].
func (s *CycleState) TAW() float64 { return s.AW * s.Zr }

// Save writes s to w in gob format
// (format description at https://golang.org/pkg/encoding/gob/).
func (s *CycleState) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("cropet: saving state: %v", err)
	}
	return nil
}

// LoadState reads a state previously written by Save.
func LoadState(r io.Reader) (*CycleState, error) {
	s := new(CycleState)
	if err := gob.NewDecoder(r).Decode(s); err != nil {
		return nil, fmt.Errorf("cropet: loading state: %v", err)
	}
	return s, nil
}
