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

	"github.com/spatialmodel/cropet/science/psychro"
	"github.com/spatialmodel/cropet/science/snow"
	"gonum.org/v1/gonum/stat"
)

// ClimateDay is one day of weather in model units with derived
// temperature and GDD series. Missing values are NaN.
type ClimateDay struct {
	Date time.Time
	DOY  int

	ETref   float64 // mm/day
	ETref30 float64 // 30-day trailing mean [mm/day]

	Tmax, Tmin, Tmean float64 // °C
	T30               float64 // 30-day trailing mean temperature [°C]
	CGDD0             float64 // GDD base 0 °C since January 1
	Tdew              float64 // °C

	U2     float64 // wind at 2 m [m/s]
	RHMin  float64 // %
	Precip float64 // mm
	Snow   float64 // snowfall [mm]
	Depth  float64 // snow depth [mm]
	Rs     float64 // MJ/m²/day

	CO2Grass, CO2Tree, CO2C4 float64

	// Observed irrigation [mm].
	IrrReal, IrrManual, IrrSpecial float64
}

// Climate is the prepared weather of one station as seen by one cell.
type Climate struct {
	StationID string
	Days      []ClimateDay

	// T30LT and CGDD0LT are the long-term means by day of year (1-366)
	// of T30 and CGDD0. Days with no data are NaN.
	T30LT, CGDD0LT [367]float64

	index map[time.Time]int
}

// Day returns the climate record for date t.
func (c *Climate) Day(t time.Time) (*ClimateDay, bool) {
	i, ok := c.index[t]
	if !ok {
		return nil, false
	}
	return &c.Days[i], true
}

// aridityAdjustment holds temperature adjustments [°C] at a fully arid
// site, indexed by month.
var aridityAdjustment = [13]float64{0, 0, 0, 0, 1, 1.5, 2, 3.5, 4.5, 3, 0, 0, 0}

// aridityOffset interpolates aridityAdjustment between mid-month values.
func aridityOffset(t time.Time) float64 {
	mf := clip(float64(t.Month())+(float64(t.Day())-15)/30.4, 1, 12)
	i := int(mf)
	if i >= 12 {
		return aridityAdjustment[12]
	}
	return aridityAdjustment[i] + (mf-float64(i))*(aridityAdjustment[i+1]-aridityAdjustment[i])
}

// stationPressure returns the standard atmospheric pressure [kPa] at
// elevation z [m].
func stationPressure(z float64) float64 {
	return 101.3 * math.Pow((293-0.0065*z)/293, 5.26)
}

// PrepareClimate converts the weather of stn into model units and derives
// the series and climatologies used by the simulation of cell. Reference
// ET is scaled by the cell's monthly ratios.
func PrepareClimate(stn *Station, cell *ETCell, u WeatherUnits) (*Climate, error) {
	conv, err := u.converters()
	if err != nil {
		return nil, err
	}
	c := &Climate{
		StationID: stn.ID,
		Days:      make([]ClimateDay, len(stn.Days)),
		index:     make(map[time.Time]int, len(stn.Days)),
	}
	pressure := stationPressure(cell.StationElev)
	var anySnow bool
	for i, w := range stn.Days {
		d := ClimateDay{
			Date:     w.Date,
			DOY:      w.Date.YearDay(),
			ETref:    w.ETref * cell.etrefRatio(int(w.Date.Month())),
			Tmax:     conv.temp(w.Tmax),
			Tmin:     conv.temp(w.Tmin),
			Tdew:     conv.temp(w.Tdew),
			Precip:   conv.precip(w.Precip),
			Snow:     conv.snow(w.Snow),
			Depth:    conv.snow(w.SnowDepth),
			U2:       psychro.WindTo2m(conv.wind(w.Wind), u.WindHeight),
			Rs:       conv.rad(w.Rs),
			RHMin:    w.RHMin,
			CO2Grass: w.CO2Grass,
			CO2Tree:  w.CO2Tree,
			CO2C4:    w.CO2C4,

			IrrReal:    conv.precip(w.IrrReal),
			IrrManual:  conv.precip(w.IrrManual),
			IrrSpecial: conv.precip(w.IrrSpecial),
		}
		if math.IsNaN(d.Tdew) && !math.IsNaN(w.Q) {
			d.Tdew = psychro.DewpointFromQ(w.Q, pressure)
		}
		if cell.Aridity > 0 {
			adj := aridityOffset(w.Date) * cell.Aridity / 100
			d.Tmax -= adj
			d.Tmin -= adj
		}
		if math.IsNaN(d.RHMin) && !math.IsNaN(d.Tdew) && !math.IsNaN(d.Tmax) {
			d.RHMin = psychro.RHMin(d.Tdew, d.Tmax)
		}
		d.Tmean = (d.Tmax + d.Tmin) / 2
		if d.Snow > 0 {
			anySnow = true
		}
		c.Days[i] = d
		c.index[d.Date] = i
	}

	trailingMean(c.Days, 30, func(d *ClimateDay) *float64 { return &d.Tmean }, func(d *ClimateDay) *float64 { return &d.T30 })
	trailingMean(c.Days, 30, func(d *ClimateDay) *float64 { return &d.ETref }, func(d *ClimateDay) *float64 { return &d.ETref30 })

	var cgdd float64
	var year int
	for i := range c.Days {
		d := &c.Days[i]
		if y := d.Date.Year(); y != year {
			cgdd, year = 0, y
		}
		if !math.IsNaN(d.Tmean) {
			cgdd += math.Max(d.Tmean, 0)
		}
		d.CGDD0 = cgdd
	}

	if anySnow {
		var pack snow.Pack
		for i := range c.Days {
			d := &c.Days[i]
			tmax := d.Tmax
			if math.IsNaN(tmax) {
				tmax = 0
			}
			d.Depth = pack.Step(d.Snow, tmax, d.Depth)
		}
	} else {
		for i := range c.Days {
			if math.IsNaN(c.Days[i].Depth) {
				c.Days[i].Depth = 0
			}
		}
	}

	c.T30LT = climatology(c.Days, func(d *ClimateDay) float64 { return d.T30 })
	c.CGDD0LT = climatology(c.Days, func(d *ClimateDay) float64 { return d.CGDD0 })
	return c, nil
}

// trailingMean sets out to the mean of the non-missing values of in over
// the trailing window of n calendar days, using whatever days exist at the
// start of the record or after a gap.
func trailingMean(days []ClimateDay, n int, in, out func(*ClimateDay) *float64) {
	var sum float64
	var count int
	j := 0
	for i := range days {
		if v := *in(&days[i]); !math.IsNaN(v) {
			sum += v
			count++
		}
		cutoff := days[i].Date.AddDate(0, 0, -n)
		for ; !days[j].Date.After(cutoff); j++ {
			if v := *in(&days[j]); !math.IsNaN(v) {
				sum -= v
				count--
			}
		}
		if count == 0 {
			*out(&days[i]) = math.NaN()
		} else {
			*out(&days[i]) = sum / float64(count)
		}
	}
}

// climatology returns the mean over years of f by day of year.
func climatology(days []ClimateDay, f func(*ClimateDay) float64) [367]float64 {
	var byDOY [367][]float64
	for i := range days {
		if v := f(&days[i]); !math.IsNaN(v) {
			byDOY[days[i].DOY] = append(byDOY[days[i].DOY], v)
		}
	}
	var o [367]float64
	o[0] = math.NaN()
	for doy := 1; doy <= 366; doy++ {
		if len(byDOY[doy]) == 0 {
			o[doy] = math.NaN()
			continue
		}
		o[doy] = stat.Mean(byDOY[doy], nil)
	}
	return o
}
