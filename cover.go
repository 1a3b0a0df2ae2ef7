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

import "math"

// updateHeight raises the canopy height in step with the basal crop
// coefficient. It is called before the day's coefficient is computed.
func (s *CycleState) updateHeight(crop *Crop) {
	if !s.InSeason {
		return
	}
	mid := crop.Curve.Mid()
	if mid <= s.KcMin {
		return
	}
	r := clip((s.KcBas-s.KcMin)/(mid-s.KcMin), 0, 1)
	h := s.HeightMin + (s.HeightMax-s.HeightMin)*r
	s.Height = math.Max(s.Height, h)
}

// updateCover sets the fraction of ground covered by vegetation. Winter
// cover classes set it in updateKcb.
func (s *CycleState) updateCover() {
	if !s.InSeason || s.KcBas <= s.KcMin {
		s.Fc = 0.001
		return
	}
	f := (s.KcBas - s.KcMin) / (s.KcMax - s.KcMin)
	s.Fc = clip(math.Pow(f, 1+0.5*s.Height), 0, 0.99)
}
