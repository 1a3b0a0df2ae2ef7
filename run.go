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
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// SimulationManipulator is a function that operates on a Simulation.
type SimulationManipulator func(s *Simulation) error

// Simulation holds the inputs shared by every pair in a run and the
// pairs themselves.
type Simulation struct {
	Cells   []*ETCell
	Crops   map[int]*Crop
	Options *Options
	Pairs   []*Pair
	Log     logrus.FieldLogger

	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []SimulationManipulator

	// RunFuncs are functions to be called in the given order
	// to run the simulation.
	RunFuncs []SimulationManipulator

	// CleanupFuncs are functions to be called in the given order
	// at the end of the simulation.
	CleanupFuncs []SimulationManipulator
}

func (s *Simulation) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Init initializes the simulation by running s.InitFuncs.
func (s *Simulation) Init() error {
	for _, f := range s.InitFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running s.RunFuncs.
func (s *Simulation) Run() error {
	for _, f := range s.RunFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup finishes the simulation by running s.CleanupFuncs.
func (s *Simulation) Cleanup() error {
	for _, f := range s.CleanupFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// PairFilter restricts the cells and crops that are simulated. Test
// lists, when not empty, name the only items included; skip lists name
// items excluded.
type PairFilter struct {
	CropSkip, CropTest []int
	CellSkip, CellTest []string
}

func (f *PairFilter) cropOK(n int) bool {
	return !containsInt(f.CropSkip, n) && (len(f.CropTest) == 0 || containsInt(f.CropTest, n))
}

func (f *PairFilter) cellOK(id string) bool {
	return !containsString(f.CellSkip, id) && (len(f.CellTest) == 0 || containsString(f.CellTest, id))
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// SetupPairs creates a pair for every crop grown in every cell that
// passes filter. Cells must have prepared climates. Pairs whose climate
// could not be prepared are kept with their Err set, so that they are
// reported as failed by RunPairs.
func SetupPairs(filter PairFilter) SimulationManipulator {
	return func(s *Simulation) error {
		if s.Options == nil {
			s.Options = DefaultOptions()
		}
		if err := s.Options.Validate(); err != nil {
			return err
		}
		log := s.logger()
		s.Pairs = s.Pairs[:0]
		for _, cell := range s.Cells {
			if !filter.cellOK(cell.ID) {
				continue
			}
			for _, n := range cell.Crops() {
				if !filter.cropOK(n) {
					continue
				}
				crop, ok := s.Crops[n]
				if !ok {
					log.WithFields(logrus.Fields{"cell": cell.ID, "crop": n}).Warn("crop has no parameters; skipping")
					continue
				}
				if err := cell.climateErr(crop, s.Options); err != nil {
					s.Pairs = append(s.Pairs, &Pair{
						Cell: cell,
						Crop: crop,
						Log:  log.WithFields(logrus.Fields{"cell": cell.ID, "crop": crop.ClassNumber}),
						Err:  err,
					})
					continue
				}
				p, err := NewPair(cell, crop, s.Options, log)
				if err != nil {
					return err
				}
				s.Pairs = append(s.Pairs, p)
			}
		}
		if len(s.Pairs) == 0 {
			return &ConfigError{Option: "cells", Msg: "no (cell, crop) pairs to simulate"}
		}
		return nil
	}
}

// PairHook is called after each pair finishes, with the error that
// stopped it, if any. Hooks may be called concurrently.
type PairHook func(p *Pair, err error)

// WriterFunc returns the writer for the results of a pair.
type WriterFunc func(p *Pair) (ResultWriter, error)

// RunPairs returns a function that concurrently simulates all of the
// pairs. The results of each pair are written to the writer returned by
// newWriter, if it is not nil. A failed pair does not stop the others;
// the failures are returned together as a RunError. Cancelling ctx stops
// each pair after the day it is working on.
func RunPairs(ctx context.Context, newWriter WriterFunc, hooks ...PairHook) SimulationManipulator {
	nprocs := runtime.GOMAXPROCS(0) // number of processors
	return func(s *Simulation) error {
		var wg sync.WaitGroup
		var mu sync.Mutex
		var failed RunError

		// Concurrently run all of the pairs.
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				defer wg.Done()
				for ii := pp; ii < len(s.Pairs); ii += nprocs {
					p := s.Pairs[ii]
					err := runPair(ctx, p, newWriter)
					if err != nil {
						mu.Lock()
						failed = append(failed, &PairError{Cell: p.Cell.ID, Crop: p.Crop.ClassNumber, Err: err})
						mu.Unlock()
					}
					for _, h := range hooks {
						h(p, err)
					}
				}
			}(pp)
		}
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(failed) > 0 {
			sort.Slice(failed, func(i, j int) bool {
				if failed[i].Cell != failed[j].Cell {
					return failed[i].Cell < failed[j].Cell
				}
				return failed[i].Crop < failed[j].Crop
			})
			return failed
		}
		return nil
	}
}

func runPair(ctx context.Context, p *Pair, newWriter WriterFunc) error {
	if p.Err != nil {
		return p.Err
	}
	var emit func(*DayResult) error
	var w ResultWriter
	if newWriter != nil {
		var err error
		if w, err = newWriter(p); err != nil {
			return err
		}
		emit = w.Write
	}
	err := p.Run(ctx, emit)
	if w != nil {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Log returns a hook that writes the status of the simulation to w each
// time a pair finishes.
func Log(w io.Writer, total int, clock clockwork.Clock) PairHook {
	startTime := clock.Now()
	var mu sync.Mutex
	done := 0
	lastTime := startTime
	return func(p *Pair, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		now := clock.Now()
		status := "ok"
		if err != nil {
			status = "failed"
		}
		fmt.Fprintf(w, "Pair %4d/%-4d  %-20s  walltime=%6.3gh  Δwalltime=%4.2gs  days=%d  %s\n",
			done, total, p.Name(), now.Sub(startTime).Hours(),
			now.Sub(lastTime).Seconds(), p.Stats.Days, status)
		lastTime = now
	}
}

// elapsedDays returns the number of days from a to b.
func elapsedDays(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
