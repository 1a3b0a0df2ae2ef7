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

// dormantRootDepth is the root depth of annual crops between seasons [m].
const dormantRootDepth = 0.1

// setupDormant prepares the state for the period after a season ends.
// The root zone of annual crops shrinks to the dormant depth and its
// water is mixed with the water held below it down to the maximum root
// depth.
func (s *CycleState) setupDormant(crop *Crop) {
	s.DormantPending = false
	s.Height = s.HeightMin
	s.Fraction = 0
	s.CycleDays = 0
	s.ReachedEFC = false
	s.StressEvent = false
	s.MAD = s.MADIni
	if !crop.IsAnnual || !(s.ZrMax > 0) {
		return
	}
	inRoot := math.Max(s.TAW()-s.DeplRoot, 0)
	below := math.Max(s.AW3*(s.ZrMax-s.Zr), 0)
	avg := clip((inRoot+below)/s.ZrMax, 0, s.AW)
	s.Zr = clip(dormantRootDepth, s.ZrMin, s.ZrMax)
	s.AW3 = avg
	s.DeplRoot = (s.AW - avg) * s.Zr
}
