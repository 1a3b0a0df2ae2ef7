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
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func different(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance || math.IsNaN(a) || math.IsNaN(b)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testLog discards log output.
func testLog() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func cornParams() CropParams {
	return CropParams{
		ClassNumber:             7,
		Name:                    "Field Corn",
		IsAnnual:                true,
		IrrigationFlag:          1,
		WinterSurfaceCoverClass: Mulch,
		MADInitial:              50,
		MADMidseason:            50,
		RootDepthInitial:        0.1,
		RootDepthMax:            1.5,
		EndOfRootGrowthFraction: 0.6,
		HeightInitial:           0.1,
		HeightMax:               2.5,
		CurveType:               GDDCurve,
		Kcb:                     []float64{0.15, 0.2, 0.4, 0.7, 1.0, 1.15, 1.15, 1.15, 1.0, 0.7, 0.4},
		CurveNumber:             80,
		CNCoarse:                67,
		CNMedium:                80,
		CNFine:                  85,
		PhenologySignal:         T30Signal,
		PlantingThreshold:       13,
		TBase:                   10,
		CGDDForEFC:              800,
		CGDDForTermination:      2000,
		KillingFrost:            -2,
		InvokeStress:            UnrecoverableStress,
		CropFW:                  1,
	}
}

func alfalfaParams() CropParams {
	return CropParams{
		ClassNumber:             3,
		Name:                    "Alfalfa Hay",
		CuttingCycles:           true,
		IrrigationFlag:          1,
		WinterSurfaceCoverClass: Sod,
		MADInitial:              50,
		MADMidseason:            50,
		RootDepthInitial:        1.2,
		RootDepthMax:            1.8,
		EndOfRootGrowthFraction: 0.5,
		HeightInitial:           0.1,
		HeightMax:               0.7,
		CurveType:               TimeCurve,
		Kcb:                     []float64{0.3, 0.6, 0.9, 0.95, 0.95, 0.9},
		CurveNumber:             75,
		PhenologySignal:         CGDDSignal,
		PlantingThreshold:       300,
		TBase:                   5,
		TimeForEFC:              20,
		TimeForHarvest:          35,
		KillingFrost:            -5,
		InvokeStress:            RecoverableStress,
		CropFW:                  1,
	}
}

func bareSoilParams() CropParams {
	return CropParams{
		ClassNumber:             44,
		Name:                    "Bare soil",
		WinterSurfaceCoverClass: Bare,
		MADMidseason:            50,
		RootDepthInitial:        0.1,
		RootDepthMax:            0.1,
		CurveNumber:             85,
	}
}

func openWaterParams() CropParams {
	return CropParams{
		ClassNumber:             55,
		Name:                    "Open water",
		WinterSurfaceCoverClass: Bare,
		MADMidseason:            50,
		RootDepthInitial:        0.1,
		RootDepthMax:            0.1,
	}
}

func mustCrop(t testing.TB, p CropParams) *Crop {
	t.Helper()
	c, err := NewCrop(p)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// syntheticStation returns a station with smooth seasonal weather and a
// rain event every week.
func syntheticStation(start time.Time, days int) *Station {
	s := &Station{ID: "stn"}
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		season := math.Sin(2 * math.Pi * float64(d.YearDay()-105) / 365)
		w := missingDay(d)
		w.Tmax = 16 + 16*season
		w.Tmin = w.Tmax - 14
		w.Tdew = w.Tmin - 2
		w.Wind = 2
		w.Precip = 0
		if i%7 == 3 {
			w.Precip = 6
		}
		w.ETref = math.Max(0.5, 3.8+3.3*season)
		s.Days = append(s.Days, w)
	}
	s.buildIndex()
	return s
}

func testCell(t testing.TB, stn *Station) *ETCell {
	t.Helper()
	c := &ETCell{
		ID:        "cell1",
		Lat:       40,
		Lon:       -105,
		StationID: stn.ID,
		StnWHC:    2,
		HydGroup:  Medium,
		CropAcres: map[int]float64{3: 100, 7: 200, 44: 10, 55: 5},
	}
	clim, err := PrepareClimate(stn, c, DefaultWeatherUnits())
	if err != nil {
		t.Fatal(err)
	}
	c.Climate = clim
	return c
}

func testPair(t testing.TB, p CropParams, o *Options) *Pair {
	t.Helper()
	cell := testCell(t, syntheticStation(date(2000, 1, 1), 366*3))
	pair, err := NewPair(cell, mustCrop(t, p), o, testLog())
	if err != nil {
		t.Fatal(err)
	}
	return pair
}
