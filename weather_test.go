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
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stationCSV = `# station USC00261
date,tmax,tmin,tdew,wind,precip,snow,snow_depth,unused
2001-01-01,5.5,-3.2,-6,2.1,0,0,0,x
2001-01-02,6.0,-2.0,,1.8,3.3,NA,nan,x
2001-01-03,7.5,-1.0,-4,2.4,0,0,0,x
`

func TestReadStation(t *testing.T) {
	s, err := ReadStation(strings.NewReader(stationCSV), "USC00261")
	require.NoError(t, err)
	require.Len(t, s.Days, 3)
	d := s.Days[1]
	assert.Equal(t, date(2001, 1, 2), d.Date)
	assert.Equal(t, 6.0, d.Tmax)
	assert.Equal(t, 3.3, d.Precip)
	assert.True(t, math.IsNaN(d.Tdew))
	assert.True(t, math.IsNaN(d.Snow))
	assert.True(t, math.IsNaN(d.SnowDepth))
	assert.True(t, math.IsNaN(d.Rs), "columns not in the file are missing")
	assert.True(t, math.IsNaN(d.ETref))
}

func TestReadStationIrrigation(t *testing.T) {
	doc := "date,precip,Irr_Real,irr_special\n2001-07-01,0,25,\n2001-07-02,0,,12.5\n"
	s, err := ReadStation(strings.NewReader(doc), "s")
	require.NoError(t, err)
	require.Len(t, s.Days, 2)
	assert.Equal(t, 25.0, s.Days[0].IrrReal)
	assert.True(t, math.IsNaN(s.Days[0].IrrSpecial))
	assert.Equal(t, 12.5, s.Days[1].IrrSpecial)
	assert.True(t, math.IsNaN(s.Days[1].IrrManual))
}

func TestReadStationErrors(t *testing.T) {
	tests := []struct {
		name, doc, msg string
	}{
		{"empty", "", "header"},
		{"no date", "tmax,tmin\n1,2\n", "date column not found"},
		{"bad date", "date,tmax\n2001-13-01,1\n", "date"},
		{"bad value", "date,tmax\n2001-01-01,hot\n", "tmax"},
		{"gap", "date,tmax\n2001-01-01,1\n2001-01-03,1\n", "does not follow 2001-01-01"},
		{"no rows", "date,tmax\n", "no records"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadStation(strings.NewReader(tt.doc), "s")
			require.Error(t, err)
			var ierr *InputDataError
			assert.True(t, errors.As(err, &ierr), "%v is not an InputDataError", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestAddRefET(t *testing.T) {
	s, err := ReadStation(strings.NewReader(stationCSV), "USC00261")
	require.NoError(t, err)
	err = s.AddRefET(strings.NewReader("date,eto\n2000-12-31,9\n2001-01-01,0.8\n2001-01-03,1.1\n"), ETo)
	require.NoError(t, err)
	assert.Equal(t, 0.8, s.Days[0].ETref)
	assert.True(t, math.IsNaN(s.Days[1].ETref))
	assert.Equal(t, 1.1, s.Days[2].ETref)

	err = s.AddRefET(strings.NewReader("date,etref\n2001-01-02,0.9\n"), ETr)
	require.NoError(t, err)
	assert.Equal(t, 0.9, s.Days[1].ETref)
}

func TestAddRefETWrongType(t *testing.T) {
	s, err := ReadStation(strings.NewReader(stationCSV), "USC00261")
	require.NoError(t, err)
	err = s.AddRefET(strings.NewReader("date,etr\n2001-01-01,1\n"), ETo)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr), "%v", err)
	assert.Equal(t, "refet_type", cerr.Option)

	err = s.AddRefET(strings.NewReader("date,pet\n2001-01-01,1\n"), ETo)
	var ierr *InputDataError
	require.True(t, errors.As(err, &ierr), "%v", err)
}
