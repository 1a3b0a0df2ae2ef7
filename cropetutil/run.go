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
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cheggaaa/pb"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cropet"
	"github.com/spatialmodel/cropet/internal/observability"
	"github.com/spf13/cobra"
)

// newLogger returns a logger writing text to w at the given level.
func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.Out = w
	log.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	log.SetLevel(level)
	return log
}

// loadSimulation reads the cells and crops and returns a simulation
// that prepares the cell climates and sets up the pairs when it is
// initialized.
func loadSimulation(ctx context.Context, ic *InputConfig, log logrus.FieldLogger) (*cropet.Simulation, error) {
	cells, err := LoadCells(ic.CellsFile, ic.CellUnits, log)
	if err != nil {
		return nil, err
	}
	crops, err := LoadCrops(ic.CropsFile, log)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"cells": len(cells), "crops": len(crops)}).Info("loaded inputs")

	cache := NewClimateCache(ic.WeatherDir, ic.RefETDir, ic.WeatherUnits, ic.Options.RefET, ic.CacheSize, log)
	return &cropet.Simulation{
		Cells:   selectCells(cells, ic.Filter),
		Crops:   crops,
		Options: ic.Options,
		Log:     log,
		InitFuncs: []cropet.SimulationManipulator{
			PrepareClimates(ctx, cache),
			cropet.SetupPairs(ic.Filter),
		},
	}, nil
}

// Validate loads the inputs described by ic and prints the pairs that
// would be simulated.
func Validate(cmd *cobra.Command, ic *InputConfig) error {
	log := newLogger(cmd.OutOrStdout(), ic.LogLevel)
	s, err := loadSimulation(context.Background(), ic, log)
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	failed := 0
	for _, p := range s.Pairs {
		if p.Err != nil {
			failed++
			cmd.Printf("%s\t%s\t%d\t%v\n", p.Name(), p.Cell.StationID, p.Crop.ClassNumber, p.Err)
			continue
		}
		cmd.Printf("%s\t%s\t%d\n", p.Name(), p.Cell.StationID, p.Crop.ClassNumber)
	}
	cmd.Printf("%d pairs in %d cells\n", len(s.Pairs), len(s.Cells))
	if failed > 0 {
		return fmt.Errorf("cropet: %d pairs cannot be simulated", failed)
	}
	return nil
}

// Run runs the simulation described by rc. Log messages are written to
// the output of cmd and to rc.LogFile.
func Run(cmd *cobra.Command, rc *RunConfig) error {
	startTime := time.Now()

	logfile, err := os.Create(rc.LogFile)
	if err != nil {
		return fmt.Errorf("cropet: problem creating log file: %v", err)
	}
	defer logfile.Close()
	mw := io.MultiWriter(cmd.OutOrStdout(), logfile)
	log := newLogger(mw, rc.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWith(reg)
	if rc.MetricsAddr != "" {
		srv := serveMetrics(rc.MetricsAddr, reg, log)
		defer srv.Close()
	}

	s, err := loadSimulation(ctx, &rc.InputConfig, log)
	if err != nil {
		return err
	}
	if rc.Resume {
		s.InitFuncs = append(s.InitFuncs, cropet.LoadStates(rc.CheckpointDir))
	}
	log.Info("Initializing pairs...")
	if err := s.Init(); err != nil {
		return err
	}
	log.Infof("Simulating %d pairs in %d cells...", len(s.Pairs), len(s.Cells))

	o, err := cropet.NewOutputter(rc.OutputFlags, rc.OutputVariables, nil)
	if err != nil {
		return err
	}
	clock := clockwork.NewRealClock()
	sm := cropet.NewSummarizer()
	hooks := []cropet.PairHook{
		cropet.Log(mw, len(s.Pairs), clock),
		func(p *cropet.Pair, err error) {
			metrics.PairDone(p.Stats.Days, p.Stats.Skipped, p.Stats.Irrigations, err != nil)
		},
	}
	if rc.Progress {
		bar := pb.New(len(s.Pairs))
		bar.Output = os.Stderr
		bar.ShowTimeLeft = true
		bar.Start()
		defer bar.Finish()
		hooks = append(hooks, func(*cropet.Pair, error) { bar.Increment() })
	}
	newWriter := timeWriters(fileWriters(rc.OutputDir, rc.OutputFormat, rc.Resume, o), metrics, clock)
	s.RunFuncs = []cropet.SimulationManipulator{cropet.RunPairs(ctx, sm.Wrap(newWriter), hooks...)}

	if rc.CheckpointDir != "" {
		s.CleanupFuncs = append(s.CleanupFuncs, cropet.SaveStates(rc.CheckpointDir))
	}
	if rc.SummaryFile != "" {
		s.CleanupFuncs = append(s.CleanupFuncs, func(*cropet.Simulation) error {
			return sm.WriteShapefile(rc.SummaryFile)
		})
	}

	runErr := s.Run()
	var failed cropet.RunError
	if runErr != nil && !errors.As(runErr, &failed) {
		return runErr
	}
	// Pairs that finished are kept even when others failed.
	if err := s.Cleanup(); err != nil {
		return err
	}
	for _, pe := range failed {
		log.WithFields(logrus.Fields{"cell": pe.Cell, "crop": pe.Crop}).Error(pe.Err)
	}
	log.Infof("Run finished in %v", time.Since(startTime).Round(time.Millisecond))
	return runErr
}

// serveMetrics serves the metrics in reg at addr/metrics until the
// returned server is closed.
func serveMetrics(addr string, reg *prometheus.Registry, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return srv
}

// fileWriters returns a WriterFunc that writes the results of each pair
// to <output_dir>/<pair name>.<format>. When resuming, CSV results of
// pairs with a saved state are appended to the existing file.
func fileWriters(dir, format string, resume bool, o *cropet.Outputter) cropet.WriterFunc {
	return func(p *cropet.Pair) (cropet.ResultWriter, error) {
		path := filepath.Join(dir, p.Name()+"."+format)
		if format == "xlsx" {
			w, err := cropet.NewXLSXWriter(path, p.Name(), o)
			if err != nil {
				return nil, err
			}
			return w, nil
		}
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		header := true
		if resume && !p.State.LastDate.IsZero() {
			if _, err := os.Stat(path); err == nil {
				flags = os.O_WRONLY | os.O_APPEND
				header = false
			}
		}
		f, err := os.OpenFile(path, flags, 0666)
		if err != nil {
			return nil, fmt.Errorf("cropet: creating output file: %v", err)
		}
		w, err := cropet.NewCSVWriter(f, o, header)
		if err != nil {
			f.Close()
			return nil, err
		}
		return w, nil
	}
}

// timedWriter records how long a pair takes, from the creation of its
// writer until it is closed.
type timedWriter struct {
	cropet.ResultWriter
	start   time.Time
	clock   clockwork.Clock
	metrics *observability.Metrics
	crop    string
}

func (w *timedWriter) Close() error {
	err := w.ResultWriter.Close()
	w.metrics.PairDuration.WithLabelValues(w.crop).Observe(w.clock.Since(w.start).Seconds())
	w.metrics.PairsRunning.Dec()
	return err
}

// timeWriters wraps the writers returned by newWriter so that pair
// durations and running pairs are recorded in m.
func timeWriters(newWriter cropet.WriterFunc, m *observability.Metrics, clock clockwork.Clock) cropet.WriterFunc {
	return func(p *cropet.Pair) (cropet.ResultWriter, error) {
		w, err := newWriter(p)
		if err != nil {
			return nil, err
		}
		m.PairsRunning.Inc()
		return &timedWriter{
			ResultWriter: w,
			start:        clock.Now(),
			clock:        clock,
			metrics:      m,
			crop:         strconv.Itoa(p.Crop.ClassNumber),
		}, nil
	}
}
