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
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Initial depletions of the evaporation layer and root zone [mm].
const initialDepletion = 10

// newCycleState returns the state of a pair before its first day.
func newCycleState(cell *ETCell, crop *Crop, o *Options, phen *Climate, log logrus.FieldLogger) *CycleState {
	s := &CycleState{
		AW:        cell.StnWHC * 1000 / 12,
		ZrMin:     crop.RootDepthInitial,
		ZrMax:     crop.RootDepthMax,
		HeightMin: crop.HeightInitial,
		HeightMax: crop.HeightMax,
		KcMin:     0.1,
		KcMax:     1,
		KcbWSCC:   o.WinterCoverKcb,
		FwStd:     crop.CropFW,
		FwSpec:    1,
		WtIrr:     0.5,
		Few:       1,
		Fewp:      0.001,
		IrrFlag:   crop.IrrigationFlag >= 1,
		IrrMin:    o.IrrMin,
		MADIni:    crop.MADInitial,
		MADMid:    crop.MADMidseason,
		CN2:       crop.CurveNumberFor(cell.HydGroup),
	}
	s.TEW = math.Max(-3.7+166*s.AW/1000, 1)
	s.TEW2, s.TEW3 = s.TEW, s.TEW
	s.REW = math.Min(0.8*s.TEW, 0.8+54.4*s.AW/1000)
	s.FwIrr = s.FwStd
	s.MAD = s.MADIni
	s.Zr = s.ZrMin
	s.Height = s.HeightMin
	s.AW3 = s.AW
	s.DeplZe = math.Min(initialDepletion, s.TEW)
	s.DeplZep = s.DeplZe
	s.DeplRoot = math.Min(initialDepletion, s.TAW())
	s.KcBas = s.KcMin
	if m, ok := crop.Mode.(WinterCover); ok {
		s.KcBas = s.KcbWSCC[m.Class]
	}
	if _, ok := crop.Mode.(CropSurface); ok {
		s.LongtermPL = longtermPlanting(crop, phen)
		if s.LongtermPL == 0 {
			log.WithField("threshold", crop.PlantingThreshold).Warn(
				"climatological phenology signal never exceeds planting threshold; crop will not be planted")
		}
	}
	return s
}

// longtermPlanting returns the first day of year on which the mean
// phenology signal exceeds the crop's planting or green-up threshold,
// or 0 if it never does.
func longtermPlanting(crop *Crop, c *Climate) int {
	series := &c.CGDD0LT
	if crop.PhenologySignal == T30Signal {
		series = &c.T30LT
	}
	for doy := 1; doy <= 366; doy++ {
		if series[doy] > crop.PlantingThreshold {
			return doy
		}
	}
	return 0
}

// reinit prepares the state for a new season starting on date.
// Soil water depletions carry over from the previous season.
func (s *CycleState) reinit(date time.Time) {
	s.CycleStart = date
	s.CycleDays = 0
	s.CGDD = 0
	s.Cycle = 1
	s.Fraction = 0
	s.StressEvent = false
	s.ReachedEFC = false
	s.Height = s.HeightMin
	s.MAD = s.MADIni
	if s.Zr < s.ZrMin {
		s.deepenRoots(s.ZrMin)
	}
}
