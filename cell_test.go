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
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feet = CellUnits{CellElev: "FEET", StationElev: "METERS"}

const cellsYAML = `
cells:
  - id: "101"
    name: Upper valley
    lat: 39.5
    lon: -119.8
    elevation: 4500
    station_id: USC00261
    station_elevation: 1370
    stn_whc: 1.8
    hydrologic_group: 2
    aridity: 50
    crops: {3: 120.5, 7: 0, 44: 10}
    etref_ratios: [1, 1, 1, 0.95, 0.95, 0.9, 0.9, 0.9, 0.95, 1, 1, 1]
  - id: "102"
    lat: -33
    station_id: AR001
    stn_whc: 2
    hydrologic_group: 3
    crops: {55: 4}
`

func TestLoadCellsYAML(t *testing.T) {
	cells, err := LoadCellsYAML(strings.NewReader(cellsYAML), feet)
	require.NoError(t, err)
	require.Len(t, cells, 2)

	c := cells[0]
	assert.Equal(t, "101", c.ID)
	assert.Equal(t, "Upper valley", c.Name)
	assert.InDelta(t, 4500*0.3048, c.Elev, 1e-9)
	assert.InDelta(t, 1370, c.StationElev, 1e-9)
	assert.Equal(t, Medium, c.HydGroup)
	assert.Equal(t, []int{3, 44}, c.Crops())
	assert.True(t, c.Northern())
	assert.Equal(t, 0.9, c.etrefRatio(7))
	assert.Equal(t, 1.0, c.etrefRatio(1))

	assert.False(t, cells[1].Northern())
	assert.Equal(t, 1.0, cells[1].etrefRatio(7))
}

func TestLoadCellsYAMLErrors(t *testing.T) {
	tests := []struct {
		name, doc, msg string
	}{
		{"none", "cells: []\n", "no cells defined"},
		{"unknown field", "cells:\n  - id: a\n    colour: red\n", "colour"},
		{"no station", "cells:\n  - id: a\n    stn_whc: 2\n    hydrologic_group: 1\n", "no weather station"},
		{"whc", "cells:\n  - id: a\n    station_id: s\n    hydrologic_group: 1\n", "stn_whc"},
		{"group", "cells:\n  - id: a\n    station_id: s\n    stn_whc: 2\n    hydrologic_group: 4\n", "hydrologic group"},
		{"ratios", "cells:\n  - id: a\n    station_id: s\n    stn_whc: 2\n    hydrologic_group: 1\n    etref_ratios: [1, 2]\n", "etref ratios"},
		{"duplicate", "cells:\n  - {id: a, station_id: s, stn_whc: 2, hydrologic_group: 1}\n  - {id: a, station_id: s, stn_whc: 2, hydrologic_group: 1}\n", "more than once"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCellsYAML(strings.NewReader(tt.doc), feet)
			require.Error(t, err)
			var cerr *ConfigError
			assert.True(t, errors.As(err, &cerr), "%v is not a ConfigError", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadCellsBadUnits(t *testing.T) {
	_, err := LoadCellsYAML(strings.NewReader(cellsYAML), CellUnits{CellElev: "furlongs", StationElev: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell_elev_units")
}

func TestLoadCellsShapefile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "cells.shp")
	w, err := shp.Create(fname, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("CELL_ID", 20),
		shp.StringField("STN_ID", 20),
		shp.FloatField("STN_WHC", 10, 3),
		shp.NumberField("HYD_GRP", 2),
		shp.FloatField("ELEV", 10, 1),
		shp.FloatField("CROP_03", 12, 2),
		shp.FloatField("CROP_44", 12, 2),
		shp.FloatField("RATIO_07", 8, 3),
	}))
	row := w.Write(&shp.Point{X: -110.5, Y: 45.25})
	for i, v := range []string{"c1", "stn", "1.5", "1", "100", "80", "0", "0.9"} {
		require.NoError(t, w.WriteAttribute(int(row), i, v))
	}
	w.Close()

	cells, err := LoadCellsShapefile(fname, CellUnits{CellElev: "feet", StationElev: "feet"})
	require.NoError(t, err)
	require.Len(t, cells, 1)
	c := cells[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "stn", c.StationID)
	assert.InDelta(t, 45.25, c.Lat, 1e-9)
	assert.InDelta(t, -110.5, c.Lon, 1e-9)
	assert.InDelta(t, 30.48, c.Elev, 1e-6)
	assert.Equal(t, 1.5, c.StnWHC)
	assert.Equal(t, Coarse, c.HydGroup)
	assert.Equal(t, []int{3}, c.Crops())
	require.Len(t, c.ETrefRatios, 12)
	assert.Equal(t, 0.9, c.etrefRatio(7))
	assert.Equal(t, 1.0, c.etrefRatio(8))
}
