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
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cropet/science/runoff"
)

// PairStats counts what happened while a pair was simulated.
type PairStats struct {
	Days        int // days simulated
	Skipped     int // days whose water balance was skipped
	Irrigations int // automatic irrigation events
	Seasons     int // growing seasons started
}

// Pair simulates one crop grown in one cell.
type Pair struct {
	Cell  *ETCell
	Crop  *Crop
	State *CycleState
	Stats PairStats
	Log   logrus.FieldLogger

	// Err is set when the pair cannot be simulated, for example
	// because its weather could not be read.
	Err error

	opts       *Options
	clim, phen *Climate
}

// NewPair sets up the simulation of crop in cell. The cell's climate
// must already have been prepared.
func NewPair(cell *ETCell, crop *Crop, o *Options, log logrus.FieldLogger) (*Pair, error) {
	if cell.Climate == nil {
		return nil, fmt.Errorf("cropet: cell %s has no climate", cell.ID)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Pair{
		Cell: cell,
		Crop: crop,
		Log:  log.WithFields(logrus.Fields{"cell": cell.ID, "crop": crop.ClassNumber}),
		opts: o,
		clim: cell.Climate,
		phen: cell.Climate,
	}
	if o.Phenology.usesAlt(crop.IsAnnual) {
		if cell.AltClimate != nil {
			p.phen = cell.AltClimate
		} else {
			p.Log.Warn("no alternate weather station; using main station for phenology")
		}
	}
	p.State = newCycleState(cell, crop, o, p.phen, p.Log)
	return p, nil
}

// Name returns the name used for the pair's output files.
func (p *Pair) Name() string {
	return fmt.Sprintf("%s_crop_%02d", p.Cell.ID, p.Crop.ClassNumber)
}

// Input assembles the input of the day with climate record d.
func (p *Pair) Input(d *ClimateDay) (*DayInput, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"tmax", d.Tmax}, {"tmin", d.Tmin}, {"precip", d.Precip},
		{"etref", d.ETref}, {"wind", d.U2},
	} {
		if math.IsNaN(f.v) {
			return nil, &InputDataError{Cell: p.Cell.ID, Date: d.Date, Field: f.name, Msg: "is missing"}
		}
	}
	in := &DayInput{
		Date:      d.Date,
		DOY:       d.DOY,
		Month:     d.Date.Month(),
		ETref:     d.ETref,
		ETref30:   d.ETref30,
		Tmax:      d.Tmax,
		Tmin:      d.Tmin,
		Tmean:     d.Tmean,
		T30:       d.T30,
		U2:        d.U2,
		RHMin:     d.RHMin,
		Precip:    d.Precip,
		SnowDepth: d.Depth,
		CO2:       1,
		PhenT30:   d.T30,
		PhenCGDD0: d.CGDD0,
	}
	if math.IsNaN(in.ETref30) {
		in.ETref30 = in.ETref
	}
	if math.IsNaN(in.SnowDepth) {
		in.SnowDepth = 0
	}
	for _, irr := range []struct {
		to *float64
		v  float64
	}{
		{&in.IrrReal, d.IrrReal}, {&in.IrrManual, d.IrrManual}, {&in.IrrSpecial, d.IrrSpecial},
	} {
		if irr.v > 0 {
			*irr.to = irr.v
		}
	}
	var co2 float64
	switch p.Crop.CO2 {
	case CO2Grass:
		co2 = d.CO2Grass
	case CO2Tree:
		co2 = d.CO2Tree
	case CO2C4:
		co2 = d.CO2C4
	}
	if co2 > 0 {
		in.CO2 = co2
	}
	if p.phen != p.clim {
		if pd, ok := p.phen.Day(d.Date); ok && !math.IsNaN(pd.T30) {
			in.PhenT30, in.PhenCGDD0 = pd.T30, pd.CGDD0
		}
	}
	return in, nil
}

// Step advances the pair by the day described by in, which must be
// later than the last day simulated.
func (p *Pair) Step(in *DayInput) (*DayResult, error) {
	s := p.State
	if !s.LastDate.IsZero() && !in.Date.After(s.LastDate) {
		return nil, fmt.Errorf("cropet: %s: day %s is not after %s", p.Name(),
			in.Date.Format(dateFormat), s.LastDate.Format(dateFormat))
	}
	if _, ok := p.Crop.Mode.(OpenWater); ok {
		s.LastDate = in.Date
		p.Stats.Days++
		r := openWater(in)
		s.Totals.add(r)
		return r, nil
	}
	p.checkYear(in)
	if s.DormantPending {
		s.setupDormant(p.Crop)
	}

	s.PptInfPrev, s.IrrSimPrev = s.PptInf, s.IrrSim
	s.PptInf, s.Sro, s.IrrSim, s.IrrAuto, s.DPerc, s.NIWR = 0, 0, 0, 0, 0, 0
	s.EtcAct, s.EtcPot, s.EtcBas = 0, 0, 0
	s.Skipped = false

	northern := p.Cell.Northern()
	ev := NoEvent
	if _, ok := p.Crop.Mode.(CropSurface); ok {
		ev = s.advancePhenology(p.Crop, in, p.opts, northern)
		s.updateHeight(p.Crop)
	}
	if !s.updateKcb(p.Crop, p.opts, in, northern) {
		s.updateCover()
	}

	if in.Precip > 0 {
		deplSurface := s.WtIrr*s.DeplZe + (1-s.WtIrr)*s.DeplZep
		s.Sro = runoff.CurveNumber(in.Precip, s.CN2, deplSurface, s.REW, s.TEW)
		s.PptInf = in.Precip - s.Sro
	}

	if err := s.balance(p.Crop, p.opts, in); err != nil {
		var skip *skipDay
		if !errors.As(err, &skip) {
			return nil, err
		}
		p.Log.WithFields(logrus.Fields{
			"date":  in.Date.Format(dateFormat),
			"state": pretty.Sprint(s),
		}).Warn(skip.Error())
		s.IrrStdPrev, s.IrrSpecPrev = false, false
		s.Skipped = true
		p.Stats.Skipped++
	}

	if s.InSeason {
		s.growRoots(p.Crop)
		s.SeasonDays++
	}
	if s.IrrAuto > 0 {
		p.Stats.Irrigations++
	}
	switch ev {
	case SeasonStart:
		p.Stats.Seasons++
		p.Log.WithField("date", in.Date.Format(dateFormat)).Debug("season start")
	case SeasonEnd:
		p.Log.WithField("date", in.Date.Format(dateFormat)).Debug("season end")
	}
	s.LastDate = in.Date
	p.Stats.Days++
	r := s.result(in)
	s.Totals.add(r)
	return r, nil
}

// openWater returns the result of a day over open water, which
// evaporates at the reference rate.
func openWater(in *DayInput) *DayResult {
	return &DayResult{
		Date:   in.Date,
		DOY:    in.DOY,
		ETref:  in.ETref,
		Precip: in.Precip,
		T30:    in.T30,
		EtcAct: in.ETref,
		EtcPot: in.ETref,
		EtcBas: in.ETref,
		KcAct:  1,
		KcBas:  1,
		NIWR:   in.ETref - in.Precip,
		Fc:     0,
	}
}

// checkYear reports calendar years in which no season started.
func (p *Pair) checkYear(in *DayInput) {
	if _, ok := p.Crop.Mode.(CropSurface); !ok {
		return
	}
	s := p.State
	if s.LastDate.IsZero() || in.Date.Year() == s.LastDate.Year() {
		return
	}
	if s.SeasonDays == 0 && s.LastDate.YearDay() == daysIn(s.LastDate.Year()) {
		p.Log.WithField("year", s.LastDate.Year()).Info("no growing season")
	}
	s.SeasonDays = 0
}

// Run simulates every day of the pair's weather record in the run
// window, passing each result to emit. Days up to the state's LastDate
// are skipped so that a restored state resumes where it stopped.
// Cancellation of ctx is checked between days.
func (p *Pair) Run(ctx context.Context, emit func(*DayResult) error) error {
	for i := range p.clim.Days {
		d := &p.clim.Days[i]
		if !p.opts.Start.IsZero() && d.Date.Before(p.opts.Start) {
			continue
		}
		if !p.opts.End.IsZero() && d.Date.After(p.opts.End) {
			break
		}
		if !p.State.LastDate.IsZero() && !d.Date.After(p.State.LastDate) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		in, err := p.Input(d)
		if err != nil {
			return err
		}
		r, err := p.Step(in)
		if err != nil {
			return err
		}
		if emit != nil {
			if err := emit(r); err != nil {
				return err
			}
		}
	}
	return nil
}
