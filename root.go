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

// growRoots deepens the root zone with crop development. Root depth
// never decreases within a season.
func (s *CycleState) growRoots(crop *Crop) {
	end := crop.EndOfRootGrowthFraction
	if !(end > 0) {
		end = 1
	}
	zr := s.ZrMin + (s.ZrMax-s.ZrMin)*min(1, s.Fraction/end)
	if zr > s.Zr {
		s.deepenRoots(zr)
	}
}

// deepenRoots extends the root zone to zr, taking in the water held in
// the layer below it.
func (s *CycleState) deepenRoots(zr float64) {
	s.DeplRoot += (zr - s.Zr) * (s.AW - s.AW3)
	s.Zr = zr
}
