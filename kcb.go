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
)

// winterMonth reports whether month m is outside the growing season of
// the hemisphere.
func winterMonth(m time.Month, northern bool) bool {
	if northern {
		return m <= time.March || m >= time.November
	}
	return m >= time.May && m <= time.September
}

// climateKcMax returns the upper envelope of the crop coefficient for a
// growing crop.
func climateKcMax(crop *Crop, ref RefETType, in *DayInput, height float64) float64 {
	if ref == ETr {
		if crop.KcMax > 0.3 {
			return crop.KcMax
		}
		return 1
	}
	k := 1.2
	if crop.KcMax > 0.3 {
		k = crop.KcMax
	}
	rhmin := in.RHMin
	if math.IsNaN(rhmin) {
		rhmin = 45
	}
	return k + (0.04*(in.U2-2)-0.004*(rhmin-45))*math.Pow(height/3, 0.3)
}

// updateKcb sets the basal crop coefficient and its upper envelope for
// the day. It reports whether a winter cover class was applied.
func (s *CycleState) updateKcb(crop *Crop, o *Options, in *DayInput, northern bool) (winter bool) {
	var class CoverClass
	switch m := crop.Mode.(type) {
	case WinterCover:
		class = m.Class
	case CropSurface:
		if s.InSeason {
			s.KcBas = crop.Curve.Kcb(s.progress())
			s.KcMax = climateKcMax(crop, o.RefET, in, s.Height)
			if o.CO2Correction && crop.CO2 != CO2None && in.CO2 > 0 {
				s.KcBas *= in.CO2
			}
			s.KcMax = math.Max(s.KcMax, s.KcBas+0.05)
			return false
		}
		if !winterMonth(in.Month, northern) {
			s.KcBas = s.KcMin
			s.KcMax = math.Max(climateKcMax(crop, o.RefET, in, s.Height), s.KcBas+0.05)
			return false
		}
		class = crop.WinterSurfaceCoverClass
	default:
		return false
	}
	s.KcBas = s.KcbWSCC[class]
	s.KcMax = math.Max(class.kcMax(o.RefET), s.KcBas+0.05)
	s.Fc = class.fc()
	return true
}
