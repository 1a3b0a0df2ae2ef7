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
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ctessum/unit"
)

// scale describes one named unit: a value v in it equals (v+offset)*factor
// in SI, with factor carrying the unit's dimensions.
type scale struct {
	factor *unit.Unit
	offset float64
}

func scaled(v float64, d unit.Dimensions) scale { return scale{factor: unit.New(v, d)} }

// quantity converts input values of one physical kind into model units.
type quantity struct {
	name string
	dims unit.Dimensions

	// units maps lower-case unit names to their scales.
	units map[string]scale

	// model is the unit values are converted into.
	model scale
}

const secondsPerDay = 86400.

var (
	squareMeter = unit.New(1, unit.Meter2)
	day         = unit.New(secondsPerDay, unit.Second)

	celsius    = scale{factor: unit.New(1, unit.Kelvin), offset: 273.15}
	fahrenheit = scale{factor: unit.New(5./9, unit.Kelvin), offset: 459.67}
	inch       = scaled(0.0254, unit.Meter)
	foot       = scaled(0.3048, unit.Meter)
	langley    = scale{factor: unit.Div(unit.New(41840, unit.Joule), squareMeter, day)}
	megajoule  = scale{factor: unit.Div(unit.New(1e6, unit.Joule), squareMeter, day)}
)

var (
	temperatureQ = quantity{
		name: "temperature",
		dims: unit.Kelvin,
		units: map[string]scale{
			"c":  celsius,
			"f":  fahrenheit,
			"k":  scaled(1, unit.Kelvin),
			"°c": celsius,
			"°f": fahrenheit,
		},
		model: celsius,
	}
	depthQ = quantity{
		name: "depth",
		dims: unit.Meter,
		units: map[string]scale{
			"mm":     scaled(1e-3, unit.Meter),
			"cm":     scaled(1e-2, unit.Meter),
			"m":      scaled(1, unit.Meter),
			"in":     inch,
			"inches": inch,
		},
		model: scaled(1e-3, unit.Meter),
	}
	elevationQ = quantity{
		name: "elevation",
		dims: unit.Meter,
		units: map[string]scale{
			"m":      scaled(1, unit.Meter),
			"meters": scaled(1, unit.Meter),
			"ft":     foot,
			"feet":   foot,
		},
		model: scaled(1, unit.Meter),
	}
	speedQ = quantity{
		name: "wind speed",
		dims: unit.MeterPerSecond,
		units: map[string]scale{
			"m/s":  scaled(1, unit.MeterPerSecond),
			"km/h": {factor: unit.Div(unit.New(1000, unit.Meter), unit.New(3600, unit.Second))},
			"mph":  {factor: unit.Div(unit.New(1609.344, unit.Meter), unit.New(3600, unit.Second))},
			"mpd":  {factor: unit.Div(unit.New(1609.344, unit.Meter), day)},
		},
		model: scaled(1, unit.MeterPerSecond),
	}
	radiationQ = quantity{
		name: "solar radiation",
		dims: unit.Dimensions{unit.MassDim: 1, unit.TimeDim: -3},
		units: map[string]scale{
			"w/m2":     {factor: unit.Div(unit.New(1, unit.Watt), squareMeter)},
			"mj/m2/d":  megajoule,
			"langley":  langley,
			"langleys": langley,
		},
		model: megajoule,
	}
)

// converter returns a function converting values in the given units into
// model units. It returns a ConfigError if the units are not recognized or
// do not have the dimensions of the quantity.
func (q quantity) converter(option, units string) (func(float64) float64, error) {
	in, ok := q.units[strings.ToLower(strings.TrimSpace(units))]
	if !ok {
		valid := make([]string, 0, len(q.units))
		for k := range q.units {
			valid = append(valid, k)
		}
		return nil, &ConfigError{Option: option,
			Msg: fmt.Sprintf("unknown %s units %q; valid options are %v", q.name, units, sortedStrings(valid))}
	}
	if err := in.factor.Check(q.dims); err != nil {
		return nil, &ConfigError{Option: option, Msg: fmt.Sprintf("%s units %q: %v", q.name, units, err)}
	}
	if err := q.model.factor.Check(q.dims); err != nil {
		return nil, &ConfigError{Option: option, Msg: fmt.Sprintf("%s model units: %v", q.name, err)}
	}
	return func(v float64) float64 {
		if math.IsNaN(v) {
			return v
		}
		si := unit.Mul(unit.New(v+in.offset, unit.Dimless), in.factor)
		return unit.Div(si, q.model.factor).Value() - q.model.offset
	}, nil
}

// WeatherUnits declares the units of the columns in station weather files.
type WeatherUnits struct {
	Temperature string  // C, F or K
	Precip      string  // mm, cm, m or in
	Snow        string  // units of snowfall and snow depth
	Wind        string  // m/s, km/h, mph or mpd
	WindHeight  float64 // anemometer height [m]
	Radiation   string  // W/m2, MJ/m2/d or langley
}

// DefaultWeatherUnits returns SI weather units with wind measured at 2 m.
func DefaultWeatherUnits() WeatherUnits {
	return WeatherUnits{
		Temperature: "C",
		Precip:      "mm",
		Snow:        "mm",
		Wind:        "m/s",
		WindHeight:  2,
		Radiation:   "MJ/m2/d",
	}
}

// weatherConverters holds the conversions for one set of WeatherUnits.
type weatherConverters struct {
	temp, precip, snow, wind, rad func(float64) float64
}

func (u WeatherUnits) converters() (*weatherConverters, error) {
	var c weatherConverters
	var err error
	if c.temp, err = temperatureQ.converter("temp_units", u.Temperature); err != nil {
		return nil, err
	}
	if c.precip, err = depthQ.converter("precip_units", u.Precip); err != nil {
		return nil, err
	}
	if c.snow, err = depthQ.converter("snow_units", u.Snow); err != nil {
		return nil, err
	}
	if c.wind, err = speedQ.converter("wind_units", u.Wind); err != nil {
		return nil, err
	}
	if c.rad, err = radiationQ.converter("rs_units", u.Radiation); err != nil {
		return nil, err
	}
	if !(u.WindHeight > 0.1) {
		return nil, &ConfigError{Option: "wind_height", Msg: fmt.Sprintf("%g m is not a valid anemometer height", u.WindHeight)}
	}
	return &c, nil
}

// Validate checks that every unit name is recognized.
func (u WeatherUnits) Validate() error {
	_, err := u.converters()
	return err
}

// ElevationConverter returns a function converting elevations in
// "FEET" or "METERS" into meters.
func ElevationConverter(option, units string) (func(float64) float64, error) {
	return elevationQ.converter(option, units)
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
