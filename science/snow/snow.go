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

// Package snow provides a simple snowpack model and the reduction of
// crop coefficients under snow cover.
package snow

import "math"

// Pack holds the state of a settled snowpack.
type Pack struct {
	Accum float64 // settled snow depth [mm]
}

// Step advances the pack by one day given snowfall depth [mm] and maximum
// temperature [°C]. Fresh snow settles 2:1 and melts at 4 mm per °C of
// positive maximum temperature. observed is the measured snow depth [mm],
// or NaN if none was measured. Step returns the snow depth for the day.
func (p *Pack) Step(snowfall, tmax, observed float64) float64 {
	if !math.IsNaN(snowfall) && snowfall > 0 {
		p.Accum += 0.5 * snowfall
	}
	melt := math.Max(4*tmax, 0)
	p.Accum = math.Max(p.Accum-melt, 0)
	if math.IsNaN(observed) {
		return p.Accum
	}
	return math.Min(observed, p.Accum)
}

// MinDepth is the snow depth [mm] above which crop coefficients are reduced.
const MinDepth = 0.01

// RadiationFactor returns the day-of-year radiation factor used when
// reducing crop coefficients under snow.
func RadiationFactor(doy int) float64 {
	d := float64(doy)
	return 2.2e-8*d*d*d - 2.42e-5*d*d + 0.006*d + 0.011
}

// Kcmult returns the multiplier applied to crop coefficients for the
// given snow depth [mm] and day of year. It is 1 when there is no snow.
func Kcmult(depth float64, doy int) float64 {
	if !(depth > MinDepth) {
		return 1
	}
	krad := RadiationFactor(doy)
	return 0.7 * (1 - krad + (1-0.8)/(1-0.25)*krad)
}
