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
	"sort"
	"strconv"
	"sync"

	"github.com/jonas-p/go-shp"
)

// Totals holds running totals of daily results.
type Totals struct {
	Days     int
	EtcAct   float64 // mm
	NIWR     float64 // mm
	Irr      float64 // mm
	Precip   float64 // mm
	InSeason int     // days
}

func (t *Totals) add(r *DayResult) {
	t.Days++
	t.EtcAct += r.EtcAct
	t.NIWR += r.NIWR
	t.Irr += r.Irrigation
	t.Precip += r.Precip
	if r.Season {
		t.InSeason++
	}
}

// PairSummary holds totals of the daily results of one pair. Pairs
// resumed from a checkpoint carry the totals saved with their state.
type PairSummary struct {
	Cell *ETCell
	Crop int
	Totals
}

// perYear returns v averaged per 365.25 days.
func (s *PairSummary) perYear(v float64) float64 {
	if s.Days == 0 {
		return 0
	}
	return v * 365.25 / float64(s.Days)
}

// Summarizer totals the results of every pair in a run.
type Summarizer struct {
	mu    sync.Mutex
	pairs map[string]*PairSummary
}

// NewSummarizer returns an empty Summarizer.
func NewSummarizer() *Summarizer {
	return &Summarizer{pairs: make(map[string]*PairSummary)}
}

type summaryWriter struct {
	s    *PairSummary
	p    *Pair
	next ResultWriter
}

func (w *summaryWriter) Write(r *DayResult) error {
	w.s.Totals = w.p.State.Totals
	if w.next == nil {
		return nil
	}
	return w.next.Write(r)
}

func (w *summaryWriter) Close() error {
	if w.next == nil {
		return nil
	}
	return w.next.Close()
}

// Wrap returns a WriterFunc that totals each pair's results before
// passing them to the writers returned by newWriter, which may be nil.
func (sm *Summarizer) Wrap(newWriter WriterFunc) WriterFunc {
	return func(p *Pair) (ResultWriter, error) {
		var next ResultWriter
		if newWriter != nil {
			var err error
			if next, err = newWriter(p); err != nil {
				return nil, err
			}
		}
		s := &PairSummary{Cell: p.Cell, Crop: p.Crop.ClassNumber}
		if p.State != nil {
			s.Totals = p.State.Totals
		}
		sm.mu.Lock()
		sm.pairs[p.Name()] = s
		sm.mu.Unlock()
		return &summaryWriter{s: s, p: p, next: next}, nil
	}
}

// Summaries returns the pair totals sorted by pair name.
func (sm *Summarizer) Summaries() []*PairSummary {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	names := make([]string, 0, len(sm.pairs))
	for n := range sm.pairs {
		names = append(names, n)
	}
	sort.Strings(names)
	o := make([]*PairSummary, len(names))
	for i, n := range names {
		o[i] = sm.pairs[n]
	}
	return o
}

// WriteShapefile writes the mean annual totals of every pair as points
// at the cell locations.
func (sm *Summarizer) WriteShapefile(fname string) error {
	w, err := shp.Create(fname, shp.POINT)
	if err != nil {
		return fmt.Errorf("cropet: creating summary shapefile: %v", err)
	}
	defer w.Close()
	err = w.SetFields([]shp.Field{
		shp.StringField("CELL_ID", 40),
		shp.NumberField("CROP", 4),
		shp.FloatField("ETC_ACT", 14, 4),
		shp.FloatField("NIWR", 14, 4),
		shp.FloatField("IRR", 14, 4),
		shp.FloatField("PRECIP", 14, 4),
		shp.FloatField("SEASON", 10, 2),
	})
	if err != nil {
		return fmt.Errorf("cropet: creating summary shapefile: %v", err)
	}
	for _, s := range sm.Summaries() {
		row := w.Write(&shp.Point{X: s.Cell.Lon, Y: s.Cell.Lat})
		vals := []string{
			s.Cell.ID,
			strconv.Itoa(s.Crop),
			strconv.FormatFloat(s.perYear(s.EtcAct), 'f', 4, 64),
			strconv.FormatFloat(s.perYear(s.NIWR), 'f', 4, 64),
			strconv.FormatFloat(s.perYear(s.Irr), 'f', 4, 64),
			strconv.FormatFloat(s.perYear(s.Precip), 'f', 4, 64),
			strconv.FormatFloat(s.perYear(float64(s.InSeason)), 'f', 2, 64),
		}
		for i, v := range vals {
			if err := w.WriteAttribute(int(row), i, v); err != nil {
				return fmt.Errorf("cropet: writing summary shapefile: %v", err)
			}
		}
	}
	return nil
}
