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

// Package psychro provides psychrometric and wind relationships used to
// prepare daily weather for crop coefficient calculations.
package psychro

import "math"

// SatVaporPressure returns the saturation vapor pressure [kPa] at
// temperature t [°C] (Tetens form used by FAO-56).
func SatVaporPressure(t float64) float64 {
	return 0.6108 * math.Exp(17.27*t/(t+237.3))
}

// RHMin returns the daily minimum relative humidity [%] estimated from
// the dewpoint tdew and maximum temperature tmax [°C].
func RHMin(tdew, tmax float64) float64 {
	r := SatVaporPressure(tdew) / SatVaporPressure(tmax)
	return 100 * math.Max(0, math.Min(1, r))
}

// WindTo2m converts wind speed measured at height z [m] to the
// equivalent speed at 2 m using the FAO-56 logarithmic profile.
func WindTo2m(uz, z float64) float64 {
	if z == 2 {
		return uz
	}
	return uz * 4.87 / math.Log(67.8*z-5.42)
}

// DewpointFromQ returns the dewpoint [°C] for specific humidity q [kg/kg]
// at pressure p [kPa].
func DewpointFromQ(q, p float64) float64 {
	ea := q * p / (0.622 + 0.378*q)
	if ea <= 0 {
		return math.NaN()
	}
	l := math.Log(ea / 0.6108)
	return 237.3 * l / (17.27 - l)
}
