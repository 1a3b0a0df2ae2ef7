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

// Package runoff calculates surface runoff from daily precipitation with
// the SCS curve number method.
package runoff

import "math"

// AMC is an antecedent moisture condition.
type AMC int

// Antecedent moisture conditions.
const (
	Dry    AMC = 1 // AMC I
	Normal AMC = 2 // AMC II
	Wet    AMC = 3 // AMC III
)

// Condition classifies the surface layer as dry, normal or wet from its
// depletion deplSurface [mm] relative to the readily (rew) and total (tew)
// evaporable water of the layer.
func Condition(deplSurface, rew, tew float64) AMC {
	switch {
	case deplSurface <= 0.5*rew:
		return Wet
	case deplSurface >= 0.7*rew+0.3*tew:
		return Dry
	}
	return Normal
}

// Adjust converts the AMC II curve number cn2 to the given condition.
func Adjust(cn2 float64, c AMC) float64 {
	switch c {
	case Dry:
		return cn2 / (2.281 - 0.01281*cn2)
	case Wet:
		return math.Min(cn2/(0.427+0.00573*cn2), 100)
	}
	return cn2
}

// Retention returns the potential maximum retention S [mm] for curve number cn.
func Retention(cn float64) float64 {
	return 25400/cn - 254
}

// Runoff returns surface runoff [mm] for daily precipitation p [mm] and
// potential maximum retention s [mm].
func Runoff(p, s float64) float64 {
	ia := 0.2 * s
	if p <= ia {
		return 0
	}
	return (p - ia) * (p - ia) / (p + 0.8*s)
}

// CurveNumber returns surface runoff [mm] for precipitation p [mm] on a
// surface with AMC II curve number cn2 and surface depletion deplSurface [mm].
// A non-positive curve number produces no runoff.
func CurveNumber(p, cn2, deplSurface, rew, tew float64) float64 {
	if !(p > 0) || !(cn2 > 0) {
		return 0
	}
	cn := Adjust(cn2, Condition(deplSurface, rew, tew))
	return math.Min(Runoff(p, Retention(cn)), p)
}
