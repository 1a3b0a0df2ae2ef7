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
)

// SeasonEvent is a growing season transition reported by the phenology
// engine.
type SeasonEvent int

// Season events.
const (
	NoEvent SeasonEvent = iota
	SeasonStart
	SeasonEnd
)

func (e SeasonEvent) String() string {
	switch e {
	case SeasonStart:
		return "season start"
	case SeasonEnd:
		return "season end"
	}
	return "none"
}

// progress returns the crop development since the start of the cycle.
func (s *CycleState) progress() Progress {
	return Progress{Days: s.CycleDays, CGDD: s.CGDD}
}

// startsSeason reports whether the crop is planted or greens up on the
// day described by in.
func (s *CycleState) startsSeason(crop *Crop, in *DayInput, window int) bool {
	if s.InSeason || s.SeasonYear == in.Date.Year() {
		return false
	}
	signal := in.PhenCGDD0
	if crop.PhenologySignal == T30Signal {
		signal = in.PhenT30
	}
	crossed := signal > crop.PlantingThreshold
	if !crop.IsAnnual || crop.WinterGrain {
		return crossed
	}
	if s.LongtermPL == 0 {
		return false
	}
	last := daysIn(in.Date.Year())
	lo := max(s.LongtermPL-window, 1)
	hi := min(s.LongtermPL+window, last)
	if in.DOY < lo || in.DOY > hi {
		return false
	}
	return crossed || in.DOY == hi
}

// endsSeason reports whether the season ends on the day described by in.
// It is called after the day's development has been accumulated.
func (s *CycleState) endsSeason(crop *Crop, in *DayInput, northern bool) bool {
	frost := s.ReachedEFC && in.Tmin <= crop.KillingFrost
	if crop.IsAnnual || crop.WinterGrain {
		return frost || crop.Curve.Terminated(s.progress())
	}
	lateSeason := in.DOY > 180
	if !northern {
		lateSeason = in.DOY < 180
	}
	if frost && lateSeason {
		return true
	}
	return crop.DOYSeasonEnd > 0 && in.DOY >= crop.DOYSeasonEnd
}

// advancePhenology decides season transitions and accumulates growing
// degree days for the day described by in. A season start reinitializes
// the state before development is accumulated.
func (s *CycleState) advancePhenology(crop *Crop, in *DayInput, o *Options, northern bool) SeasonEvent {
	ev := NoEvent
	s.Cutting = false
	if s.startsSeason(crop, in, o.PlantingWindowDays) {
		s.InSeason = true
		s.SeasonYear = in.Date.Year()
		s.reinit(in.Date)
		ev = SeasonStart
	}
	s.GDD = math.Max(in.Tmean-crop.TBase, 0)
	if !s.InSeason {
		return ev
	}
	s.CycleDays = float64(elapsedDays(s.CycleStart, in.Date))
	s.CGDD += s.GDD
	p := s.progress()
	s.Fraction = crop.Curve.Fraction(p)
	if !s.ReachedEFC && crop.Curve.PastEFC(p) {
		s.ReachedEFC = true
		s.MAD = s.MADMid
	}
	if s.endsSeason(crop, in, northern) {
		s.InSeason = false
		s.DormantPending = true
		return SeasonEnd
	}
	if crop.CuttingCycles && !crop.IsAnnual && s.Fraction >= 1 {
		s.Cutting = true
		s.Cycle++
		s.CycleStart = in.Date
		s.CGDD = 0
		s.Height = s.HeightMin
	}
	return ev
}

// daysIn returns the number of days in year y.
func daysIn(y int) int {
	return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
