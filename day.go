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

import "time"

// DayInput holds the weather driving one day of a pair.
type DayInput struct {
	Date  time.Time
	DOY   int
	Month time.Month

	ETref   float64 // mm/day
	ETref30 float64 // 30-day trailing mean [mm/day]

	Tmax, Tmin, Tmean, T30 float64 // °C
	U2                     float64 // m/s
	RHMin                  float64 // %, NaN if unknown
	Precip                 float64 // mm
	SnowDepth              float64 // mm

	// CO2 is the CO2 correction factor for the crop's category,
	// 1 when there is none.
	CO2 float64

	// PhenT30 and PhenCGDD0 are the phenology signals taken from the
	// station selected for the crop.
	PhenT30, PhenCGDD0 float64

	// Observed irrigation depths [mm].
	IrrReal, IrrManual, IrrSpecial float64
}

// DayResult is the output of one day of a pair.
type DayResult struct {
	Date time.Time
	DOY  int

	ETref  float64
	Precip float64
	T30    float64

	EtcAct, EtcPot, EtcBas float64 // mm
	KcAct, KcBas           float64

	Irrigation float64 // mm
	Runoff     float64 // mm
	DPerc      float64 // deep percolation [mm]
	NIWR       float64 // net irrigation water requirement [mm]

	Season  bool
	Cutting bool

	// Diagnostics.
	Fc, Zr, Height, DeplRoot float64
	Skipped                  bool
}

// result builds the output record of the day from the state.
func (s *CycleState) result(in *DayInput) *DayResult {
	return &DayResult{
		Date:       in.Date,
		DOY:        in.DOY,
		ETref:      in.ETref,
		Precip:     in.Precip,
		T30:        in.T30,
		EtcAct:     s.EtcAct,
		EtcPot:     s.EtcPot,
		EtcBas:     s.EtcBas,
		KcAct:      s.KcAct,
		KcBas:      s.KcBas,
		Irrigation: s.IrrSim,
		Runoff:     s.Sro,
		DPerc:      s.DPerc,
		NIWR:       s.NIWR,
		Season:     s.InSeason,
		Cutting:    s.Cutting,
		Fc:         s.Fc,
		Zr:         s.Zr,
		Height:     s.Height,
		DeplRoot:   s.DeplRoot,
		Skipped:    s.Skipped,
	}
}
