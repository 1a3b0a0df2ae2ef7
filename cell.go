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
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"gopkg.in/yaml.v3"
)

// HydGroup is the hydrologic soil group of a cell.
type HydGroup int

// Hydrologic soil groups.
const (
	Coarse HydGroup = 1
	Medium HydGroup = 2
	Fine   HydGroup = 3
)

// ETCell is a geographic area with one weather station, one soil and a
// mix of crops.
type ETCell struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
	Elev float64 `yaml:"elevation"` // m

	StationID    string  `yaml:"station_id"`
	StationElev  float64 `yaml:"station_elevation"` // m
	AltStationID string  `yaml:"alt_station_id"`

	StnWHC   float64  `yaml:"stn_whc"` // soil water holding capacity [in/ft]
	HydGroup HydGroup `yaml:"hydrologic_group"`
	Aridity  float64  `yaml:"aridity"` // 0 to 100

	// CropAcres maps crop class numbers to the area grown in the cell.
	CropAcres map[int]float64 `yaml:"crops"`

	// ETrefRatios holds optional monthly multipliers applied to the
	// reference ET series, January first.
	ETrefRatios []float64 `yaml:"etref_ratios"`

	// Climate and AltClimate are derived from the main and alternate
	// station weather by PrepareClimate.
	Climate    *Climate `yaml:"-"`
	AltClimate *Climate `yaml:"-"`

	// ClimateErr and AltClimateErr hold the errors that stopped the
	// climates from being prepared. Pairs that need a missing climate
	// fail without being simulated.
	ClimateErr    error `yaml:"-"`
	AltClimateErr error `yaml:"-"`
}

// climateErr returns the error that keeps crop from being simulated in
// the cell, if any.
func (c *ETCell) climateErr(crop *Crop, o *Options) error {
	if c.ClimateErr != nil {
		return c.ClimateErr
	}
	if o.Phenology.usesAlt(crop.IsAnnual) && c.AltClimateErr != nil {
		return c.AltClimateErr
	}
	return nil
}

// Northern reports whether the cell is in the northern hemisphere.
func (c *ETCell) Northern() bool { return c.Lat >= 0 }

// Crops returns the sorted class numbers of the crops grown in the cell.
func (c *ETCell) Crops() []int {
	o := make([]int, 0, len(c.CropAcres))
	for n, a := range c.CropAcres {
		if a > 0 {
			o = append(o, n)
		}
	}
	sort.Ints(o)
	return o
}

// etrefRatio returns the reference ET multiplier for month m (1-12).
func (c *ETCell) etrefRatio(m int) float64 {
	if len(c.ETrefRatios) != 12 || !(c.ETrefRatios[m-1] > 0) {
		return 1
	}
	return c.ETrefRatios[m-1]
}

func (c *ETCell) validate() error {
	opt := "cell " + c.ID
	switch {
	case c.ID == "":
		return &ConfigError{Option: "cells", Msg: "cell with empty id"}
	case c.StationID == "":
		return &ConfigError{Option: opt, Msg: "no weather station"}
	case math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90:
		return &ConfigError{Option: opt, Msg: fmt.Sprintf("latitude %g out of range", c.Lat)}
	case !(c.StnWHC > 0):
		return &ConfigError{Option: opt, Msg: fmt.Sprintf("stn_whc %g must be > 0", c.StnWHC)}
	case c.HydGroup < Coarse || c.HydGroup > Fine:
		return &ConfigError{Option: opt, Msg: fmt.Sprintf("hydrologic group %d not in 1-3", c.HydGroup)}
	case c.Aridity < 0 || c.Aridity > 100:
		return &ConfigError{Option: opt, Msg: fmt.Sprintf("aridity %g not in 0-100", c.Aridity)}
	case len(c.ETrefRatios) != 0 && len(c.ETrefRatios) != 12:
		return &ConfigError{Option: opt, Msg: fmt.Sprintf("%d etref ratios; need 12", len(c.ETrefRatios))}
	}
	return nil
}

// CellUnits declares the units of elevations in the cell table,
// "FEET" or "METERS".
type CellUnits struct {
	CellElev    string
	StationElev string
}

func (u CellUnits) convert(cells []*ETCell) error {
	cellElev, err := ElevationConverter("cell_elev_units", u.CellElev)
	if err != nil {
		return err
	}
	stnElev, err := ElevationConverter("station_elev_units", u.StationElev)
	if err != nil {
		return err
	}
	for _, c := range cells {
		c.Elev = cellElev(c.Elev)
		c.StationElev = stnElev(c.StationElev)
	}
	return nil
}

func finishCells(cells []*ETCell, u CellUnits) ([]*ETCell, error) {
	if len(cells) == 0 {
		return nil, &ConfigError{Option: "cells", Msg: "no cells defined"}
	}
	seen := make(map[string]bool)
	for _, c := range cells {
		if err := c.validate(); err != nil {
			return nil, err
		}
		if seen[c.ID] {
			return nil, &ConfigError{Option: "cells", Msg: fmt.Sprintf("cell %s is defined more than once", c.ID)}
		}
		seen[c.ID] = true
	}
	if err := u.convert(cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// LoadCellsYAML reads ET cells from a YAML document with a top-level
// "cells" list.
func LoadCellsYAML(r io.Reader, u CellUnits) ([]*ETCell, error) {
	var doc struct {
		Cells []*ETCell `yaml:"cells"`
	}
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(&doc); err != nil {
		return nil, &ConfigError{Option: "cells", Msg: err.Error()}
	}
	return finishCells(doc.Cells, u)
}

var cropField = regexp.MustCompile(`^CROP_(\d+)$`)
var ratioField = regexp.MustCompile(`^RATIO_(\d+)$`)

// LoadCellsShapefile reads ET cells from the attribute table of a
// shapefile. Recognized fields are CELL_ID, CELL_NAME, LAT, LON, ELEV,
// STN_ID, STN_ELEV, ALT_STN, STN_WHC, HYD_GRP, ARIDITY, CROP_nn (acres
// of crop class nn) and RATIO_mm (reference ET ratio for month mm).
// LAT and LON default to the coordinates of point shapes.
func LoadCellsShapefile(filename string, u CellUnits) ([]*ETCell, error) {
	r, err := shp.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cropet: opening cells shapefile: %v", err)
	}
	defer r.Close()

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToUpper(fieldName(f.Name))
	}

	var cells []*ETCell
	for r.Next() {
		row, shape := r.Shape()
		c := &ETCell{CropAcres: make(map[int]float64), Lat: math.NaN(), Lon: math.NaN()}
		if p, ok := shape.(*shp.Point); ok {
			c.Lon, c.Lat = p.X, p.Y
		}
		var ratios [12]float64
		var hasRatios bool
		for j, name := range names {
			val := strings.Trim(r.ReadAttribute(row, j), " \x00")
			num := func() (float64, error) {
				if val == "" {
					return 0, nil
				}
				v, err := strconv.ParseFloat(val, 64)
				if err != nil {
					return 0, &ConfigError{Option: "cells", Msg: fmt.Sprintf("row %d field %s: %v", row, name, err)}
				}
				return v, nil
			}
			var v float64
			switch name {
			case "CELL_ID":
				c.ID = val
				continue
			case "CELL_NAME":
				c.Name = val
				continue
			case "STN_ID":
				c.StationID = val
				continue
			case "ALT_STN":
				c.AltStationID = val
				continue
			}
			if v, err = num(); err != nil {
				return nil, err
			}
			switch name {
			case "LAT":
				c.Lat = v
			case "LON":
				c.Lon = v
			case "ELEV":
				c.Elev = v
			case "STN_ELEV":
				c.StationElev = v
			case "STN_WHC":
				c.StnWHC = v
			case "HYD_GRP":
				c.HydGroup = HydGroup(v)
			case "ARIDITY":
				c.Aridity = v
			default:
				if m := cropField.FindStringSubmatch(name); m != nil {
					n, _ := strconv.Atoi(m[1])
					c.CropAcres[n] = v
				} else if m := ratioField.FindStringSubmatch(name); m != nil {
					month, _ := strconv.Atoi(m[1])
					if month >= 1 && month <= 12 && v > 0 {
						ratios[month-1] = v
						hasRatios = true
					}
				}
			}
		}
		if hasRatios {
			for i := range ratios {
				if ratios[i] == 0 {
					ratios[i] = 1
				}
			}
			c.ETrefRatios = ratios[:]
		}
		cells = append(cells, c)
	}
	return finishCells(cells, u)
}

// fieldName converts a fixed-width DBF field name to a string.
func fieldName(b [11]byte) string {
	if i := bytes.IndexByte(b[:], 0); i >= 0 {
		return string(b[:i])
	}
	return string(b[:])
}
