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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

// WeatherDay is one day of station weather in input units. Missing
// values are NaN.
type WeatherDay struct {
	Date time.Time

	Tmax, Tmin, Tdew float64
	Q                float64 // specific humidity [kg/kg]
	Wind             float64
	Precip           float64
	Snow, SnowDepth  float64
	Rs               float64
	RHMin            float64 // %

	// CO2 correction factors for each crop category.
	CO2Grass, CO2Tree, CO2C4 float64

	ETref float64 // mm/day

	// Observed irrigation applied to the station's fields.
	IrrReal, IrrManual, IrrSpecial float64
}

// Station holds the daily weather record of one station.
type Station struct {
	ID   string
	Days []WeatherDay

	index map[time.Time]int
}

// weatherColumns maps accepted column names to the WeatherDay field setters.
var weatherColumns = map[string]func(d *WeatherDay, v float64){
	"tmax":        func(d *WeatherDay, v float64) { d.Tmax = v },
	"tmin":        func(d *WeatherDay, v float64) { d.Tmin = v },
	"tdew":        func(d *WeatherDay, v float64) { d.Tdew = v },
	"q":           func(d *WeatherDay, v float64) { d.Q = v },
	"wind":        func(d *WeatherDay, v float64) { d.Wind = v },
	"precip":      func(d *WeatherDay, v float64) { d.Precip = v },
	"snow":        func(d *WeatherDay, v float64) { d.Snow = v },
	"snow_depth":  func(d *WeatherDay, v float64) { d.SnowDepth = v },
	"rs":          func(d *WeatherDay, v float64) { d.Rs = v },
	"rh_min":      func(d *WeatherDay, v float64) { d.RHMin = v },
	"co2_grass":   func(d *WeatherDay, v float64) { d.CO2Grass = v },
	"co2_tree":    func(d *WeatherDay, v float64) { d.CO2Tree = v },
	"co2_c4":      func(d *WeatherDay, v float64) { d.CO2C4 = v },
	"irr_real":    func(d *WeatherDay, v float64) { d.IrrReal = v },
	"irr_manual":  func(d *WeatherDay, v float64) { d.IrrManual = v },
	"irr_special": func(d *WeatherDay, v float64) { d.IrrSpecial = v },
}

func missingDay(t time.Time) WeatherDay {
	nan := math.NaN()
	return WeatherDay{Date: t, Tmax: nan, Tmin: nan, Tdew: nan, Q: nan, Wind: nan,
		Precip: nan, Snow: nan, SnowDepth: nan, Rs: nan, RHMin: nan,
		CO2Grass: nan, CO2Tree: nan, CO2C4: nan, ETref: nan,
		IrrReal: nan, IrrManual: nan, IrrSpecial: nan}
}

// parseValue parses a numeric field; empty fields and "nan" are missing.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "na") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// readTable reads a CSV table with a "date" column and calls f for each row.
func readTable(r io.Reader, id string, f func(date time.Time, header, row []string) error) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	header, err := cr.Read()
	if err != nil {
		return &InputDataError{Cell: id, Field: "header", Msg: err.Error()}
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	dateCol := -1
	for i, h := range header {
		if h == "date" {
			dateCol = i
		}
	}
	if dateCol < 0 {
		return &InputDataError{Cell: id, Field: "date", Msg: "column not found"}
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &InputDataError{Cell: id, Field: "row", Msg: err.Error()}
		}
		date, err := time.Parse(dateFormat, strings.TrimSpace(row[dateCol]))
		if err != nil {
			return &InputDataError{Cell: id, Field: "date", Msg: err.Error()}
		}
		if err := f(date, header, row); err != nil {
			return err
		}
	}
}

// ReadStation reads daily weather for station id from CSV. The header must
// contain "date" (YYYY-MM-DD) and may contain tmax, tmin, tdew, q, wind,
// precip, snow, snow_depth, rs, rh_min, co2_grass, co2_tree, co2_c4 and
// the observed irrigation columns irr_real, irr_manual and irr_special,
// which are in precipitation units. Days must be consecutive.
func ReadStation(r io.Reader, id string) (*Station, error) {
	s := &Station{ID: id}
	err := readTable(r, id, func(date time.Time, header, row []string) error {
		d := missingDay(date)
		for i, h := range header {
			set, ok := weatherColumns[h]
			if !ok {
				continue
			}
			v, err := parseValue(row[i])
			if err != nil {
				return &InputDataError{Cell: id, Date: date, Field: h, Msg: err.Error()}
			}
			set(&d, v)
		}
		if n := len(s.Days); n > 0 && !date.Equal(s.Days[n-1].Date.AddDate(0, 0, 1)) {
			return &InputDataError{Cell: id, Date: date, Field: "date",
				Msg: fmt.Sprintf("does not follow %s", s.Days[n-1].Date.Format(dateFormat))}
		}
		s.Days = append(s.Days, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(s.Days) == 0 {
		return nil, &InputDataError{Cell: id, Field: "weather", Msg: "no records"}
	}
	s.buildIndex()
	return s, nil
}

func (s *Station) buildIndex() {
	s.index = make(map[time.Time]int, len(s.Days))
	for i, d := range s.Days {
		s.index[d.Date] = i
	}
}

// AddRefET joins a reference ET series read from CSV onto the station by
// date. The series column may be named eto, etr or etref; a column naming
// the other reference type is an error.
func (s *Station) AddRefET(r io.Reader, ref RefETType) error {
	want := strings.ToLower(ref.String())
	other := "etr"
	if ref == ETr {
		other = "eto"
	}
	return readTable(r, s.ID, func(date time.Time, header, row []string) error {
		col := -1
		for i, h := range header {
			switch h {
			case want, "etref":
				col = i
			case other:
				if col < 0 {
					col = -2
				}
			}
		}
		switch col {
		case -1:
			return &InputDataError{Cell: s.ID, Field: want, Msg: "column not found"}
		case -2:
			return &ConfigError{Option: "refet_type", Msg: fmt.Sprintf("station %s provides %s but the run uses %s", s.ID, other, ref)}
		}
		i, ok := s.index[date]
		if !ok {
			return nil
		}
		v, err := parseValue(row[col])
		if err != nil {
			return &InputDataError{Cell: s.ID, Date: date, Field: want, Msg: err.Error()}
		}
		s.Days[i].ETref = v
		return nil
	})
}
