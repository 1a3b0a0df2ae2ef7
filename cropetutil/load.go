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

package cropetutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cropet"
	"github.com/spatialmodel/cropet/internal/hash"
)

// maxOpenRetry is how long openRetry keeps trying to open a file.
var maxOpenRetry = time.Minute

// openRetry opens an input file, retrying with exponential backoff
// when the error may be temporary, as on network file systems.
// Missing files and permission errors are not retried.
func openRetry(path string, log logrus.FieldLogger) (*os.File, error) {
	var f *os.File
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxOpenRetry
	err := backoff.RetryNotify(func() error {
		var err error
		f, err = os.Open(path)
		if os.IsNotExist(err) || os.IsPermission(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, d time.Duration) {
		log.WithField("file", path).Warnf("%v; retrying in %v", err, d)
	})
	if err != nil {
		return nil, fmt.Errorf("cropet: opening input file: %v", err)
	}
	return f, nil
}

// LoadCells reads the ET cell table from a shapefile or a YAML document,
// depending on the file extension.
func LoadCells(filename string, u cropet.CellUnits, log logrus.FieldLogger) ([]*cropet.ETCell, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".shp":
		if _, err := os.Stat(filename); err != nil {
			return nil, fmt.Errorf("cropet: opening cells shapefile: %v", err)
		}
		return cropet.LoadCellsShapefile(filename, u)
	case ".yaml", ".yml":
		f, err := openRetry(filename, log)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return cropet.LoadCellsYAML(f, u)
	default:
		return nil, &cropet.ConfigError{Option: "cells",
			Msg: fmt.Sprintf("unsupported file type %q; must be .shp, .yaml or .yml", filepath.Ext(filename))}
	}
}

// LoadCrops reads the crop parameters from a TOML file.
func LoadCrops(filename string, log logrus.FieldLogger) (map[int]*cropet.Crop, error) {
	f, err := openRetry(filename, log)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cropet.LoadCrops(f, log)
}

// ClimateCache reads station weather and prepares the climate of each
// cell. Stations are read once and cells that see a station the same
// way share one prepared climate. It is safe for concurrent use.
type ClimateCache struct {
	WeatherDir, RefETDir string
	Units                cropet.WeatherUnits
	RefET                cropet.RefETType
	Log                  logrus.FieldLogger

	stations *requestcache.Cache
	climates *requestcache.Cache
}

// Errors travel in the result so that deduplicated requests are released.
type stationResult struct {
	s   *cropet.Station
	err error
}

type climateResult struct {
	c   *cropet.Climate
	err error
}

type climateRequest struct {
	stationID string
	cell      *cropet.ETCell
}

// NewClimateCache returns a cache holding up to size prepared climates
// and stations.
func NewClimateCache(weatherDir, refETDir string, u cropet.WeatherUnits, ref cropet.RefETType, size int, log logrus.FieldLogger) *ClimateCache {
	cc := &ClimateCache{
		WeatherDir: weatherDir,
		RefETDir:   refETDir,
		Units:      u,
		RefET:      ref,
		Log:        log,
	}
	nprocs := runtime.GOMAXPROCS(-1)
	cc.stations = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		s, err := cc.readStation(request.(string))
		return &stationResult{s: s, err: err}, nil
	}, nprocs, requestcache.Deduplicate(), requestcache.Memory(size))
	cc.climates = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		r := request.(climateRequest)
		stn, err := cc.Station(ctx, r.stationID)
		if err != nil {
			return &climateResult{err: err}, nil
		}
		c, err := cropet.PrepareClimate(stn, r.cell, cc.Units)
		return &climateResult{c: c, err: err}, nil
	}, nprocs, requestcache.Deduplicate(), requestcache.Memory(size))
	return cc
}

// readStation reads the weather and reference ET of station id.
func (cc *ClimateCache) readStation(id string) (*cropet.Station, error) {
	f, err := openRetry(filepath.Join(cc.WeatherDir, id+".csv"), cc.Log)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := cropet.ReadStation(f, id)
	if err != nil {
		return nil, err
	}
	rf, err := openRetry(filepath.Join(cc.RefETDir, id+".csv"), cc.Log)
	if err != nil {
		return nil, err
	}
	defer rf.Close()
	if err := s.AddRefET(rf, cc.RefET); err != nil {
		return nil, err
	}
	cc.Log.WithFields(logrus.Fields{"station": id, "days": len(s.Days)}).Debug("read station weather")
	return s, nil
}

// Station returns the weather of station id. The result must not be
// modified.
func (cc *ClimateCache) Station(ctx context.Context, id string) (*cropet.Station, error) {
	r, err := cc.stations.NewRequest(ctx, id, id).Result()
	if err != nil {
		return nil, err
	}
	res := r.(*stationResult)
	return res.s, res.err
}

// Climate returns the climate of station id as seen by cell. The result
// must not be modified.
func (cc *ClimateCache) Climate(ctx context.Context, stationID string, cell *cropet.ETCell) (*cropet.Climate, error) {
	key := hash.Hash(stationID, cell.StationElev, cell.Aridity, cell.ETrefRatios)
	r, err := cc.climates.NewRequest(ctx, climateRequest{stationID: stationID, cell: cell}, key).Result()
	if err != nil {
		return nil, err
	}
	res := r.(*climateResult)
	return res.c, res.err
}

// Requests returns the number of climate requests received by the
// deduplication cache, the memory cache and the processor.
func (cc *ClimateCache) Requests() []int {
	return cc.climates.Requests()
}

// PrepareClimates returns a function that prepares the climates of the
// simulation's cells using cache. Alternate station climates are only
// prepared when the phenology option uses them. A station whose weather
// cannot be read is recorded on the cells that use it, so that only
// their pairs fail. Configuration errors and cancellation stop the
// simulation.
func PrepareClimates(ctx context.Context, cache *ClimateCache) cropet.SimulationManipulator {
	nprocs := runtime.GOMAXPROCS(0)
	return func(s *cropet.Simulation) error {
		useAlt := s.Options != nil && s.Options.Phenology != cropet.MainPhenology
		var wg sync.WaitGroup
		errs := make([]error, nprocs)
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				defer wg.Done()
				for ii := pp; ii < len(s.Cells); ii += nprocs {
					cell := s.Cells[ii]
					cell.Climate, cell.ClimateErr = cache.Climate(ctx, cell.StationID, cell)
					if cell.ClimateErr != nil {
						cell.ClimateErr = fmt.Errorf("cropet: preparing climate of cell %s: %w", cell.ID, cell.ClimateErr)
						if fatalClimateErr(ctx, cell.ClimateErr) {
							errs[pp] = cell.ClimateErr
							return
						}
						cache.Log.WithField("cell", cell.ID).Warn(cell.ClimateErr)
					}
					if useAlt && cell.AltStationID != "" {
						cell.AltClimate, cell.AltClimateErr = cache.Climate(ctx, cell.AltStationID, cell)
						if cell.AltClimateErr != nil {
							cell.AltClimateErr = fmt.Errorf("cropet: preparing alternate climate of cell %s: %w", cell.ID, cell.AltClimateErr)
							if fatalClimateErr(ctx, cell.AltClimateErr) {
								errs[pp] = cell.AltClimateErr
								return
							}
							cache.Log.WithField("cell", cell.ID).Warn(cell.AltClimateErr)
						}
					}
				}
			}(pp)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// fatalClimateErr reports whether err should stop the whole simulation
// rather than only the pairs of one cell.
func fatalClimateErr(ctx context.Context, err error) bool {
	var cerr *cropet.ConfigError
	return errors.As(err, &cerr) || ctx.Err() != nil
}

// selectCells returns the cells that pass the cell lists of f, so that
// weather is only read for cells that are simulated.
func selectCells(cells []*cropet.ETCell, f cropet.PairFilter) []*cropet.ETCell {
	var o []*cropet.ETCell
	for _, c := range cells {
		if contains(f.CellSkip, c.ID) {
			continue
		}
		if len(f.CellTest) > 0 && !contains(f.CellTest, c.ID) {
			continue
		}
		o = append(o, c)
	}
	return o
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
