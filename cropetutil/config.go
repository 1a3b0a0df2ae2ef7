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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cropet"
	"github.com/spf13/cast"
)

const dateFormat = "2006-01-02"

// InputConfig holds the settings needed to load the inputs of a
// simulation.
type InputConfig struct {
	CellsFile  string
	CropsFile  string
	WeatherDir string
	RefETDir   string

	CellUnits    cropet.CellUnits
	WeatherUnits cropet.WeatherUnits
	Options      *cropet.Options
	Filter       cropet.PairFilter

	// CacheSize is the number of prepared climates kept in memory.
	CacheSize int

	LogLevel logrus.Level
}

// RunConfig holds the settings of a simulation run.
type RunConfig struct {
	InputConfig

	OutputDir       string
	OutputFormat    string
	OutputFlags     cropet.OutputFlags
	OutputVariables map[string]string

	LogFile       string
	SummaryFile   string
	CheckpointDir string
	Resume        bool
	MetricsAddr   string
	Progress      bool
}

// NewInputConfig reads and checks the input settings in cfg.
func NewInputConfig(cfg *viper.Viper) (*InputConfig, error) {
	var ic InputConfig
	var err error
	if ic.CellsFile, err = checkInputFile("cells", cfg.GetString("cells")); err != nil {
		return nil, err
	}
	if ic.CropsFile, err = checkInputFile("crops", cfg.GetString("crops")); err != nil {
		return nil, err
	}
	if ic.WeatherDir, err = checkInputFile("weather_dir", cfg.GetString("weather_dir")); err != nil {
		return nil, err
	}
	if ic.RefETDir, err = checkInputFile("refet_dir", cfg.GetString("refet_dir")); err != nil {
		return nil, err
	}
	if ic.CellUnits, err = cellUnits(cfg); err != nil {
		return nil, err
	}
	if ic.WeatherUnits, err = weatherUnits(cfg); err != nil {
		return nil, err
	}
	if ic.Options, err = modelOptions(cfg); err != nil {
		return nil, err
	}
	if ic.Filter, err = pairFilter(cfg); err != nil {
		return nil, err
	}
	if ic.CacheSize = cfg.GetInt("cache_size"); ic.CacheSize < 1 {
		return nil, &cropet.ConfigError{Option: "cache_size", Msg: "must be at least 1"}
	}
	if ic.LogLevel, err = logrus.ParseLevel(cfg.GetString("log_level")); err != nil {
		return nil, &cropet.ConfigError{Option: "log_level", Msg: err.Error()}
	}
	return &ic, nil
}

// NewRunConfig reads and checks the run settings in cfg.
func NewRunConfig(cfg *viper.Viper) (*RunConfig, error) {
	ic, err := NewInputConfig(cfg)
	if err != nil {
		return nil, err
	}
	rc := &RunConfig{
		InputConfig: *ic,
		OutputFlags: cropet.OutputFlags{
			Kc:      cfg.GetBool("kc_flag"),
			NIWR:    cfg.GetBool("niwr_flag"),
			Cutting: cfg.GetBool("cutting_flag"),
		},
		SummaryFile:   os.ExpandEnv(cfg.GetString("summary_file")),
		CheckpointDir: os.ExpandEnv(cfg.GetString("checkpoint_dir")),
		Resume:        cfg.GetBool("resume"),
		MetricsAddr:   cfg.GetString("metrics_addr"),
		Progress:      cfg.GetBool("progress"),
	}
	if rc.OutputDir, err = checkOutputDir(cfg.GetString("output_dir")); err != nil {
		return nil, err
	}
	if rc.OutputFormat, err = checkOutputFormat(cfg.GetString("output_format")); err != nil {
		return nil, err
	}
	vars, err := GetStringMapString("OutputVariables", cfg)
	if err != nil {
		return nil, &cropet.ConfigError{Option: "OutputVariables", Msg: err.Error()}
	}
	rc.OutputVariables = checkOutputVars(vars)
	rc.LogFile = checkLogFile(cfg.GetString("log_file"), rc.OutputDir)
	if rc.Resume && rc.CheckpointDir == "" {
		return nil, &cropet.ConfigError{Option: "resume", Msg: "checkpoint_dir must be set to resume"}
	}
	return rc, nil
}

// modelOptions reads the model settings shared by every pair.
func modelOptions(cfg *viper.Viper) (*cropet.Options, error) {
	o := cropet.DefaultOptions()
	var err error
	if o.RefET, err = cropet.ParseRefETType(cfg.GetString("refet_type")); err != nil {
		return nil, err
	}
	if o.Start, err = parseDate("start_date", cfg.GetString("start_date")); err != nil {
		return nil, err
	}
	if o.End, err = parseDate("end_date", cfg.GetString("end_date")); err != nil {
		return nil, err
	}
	o.Phenology = cropet.PhenologyOption(cfg.GetInt("phenology_option"))
	o.CO2Correction = cfg.GetBool("co2_correction")
	o.PlantingWindowDays = cfg.GetInt("planting_window_days")
	o.IrrMin = cfg.GetFloat64("irr_min")

	kcb := cfg.GetStringSlice("winter_cover_kcb")
	if len(kcb) != len(o.WinterCoverKcb)-1 {
		return nil, &cropet.ConfigError{Option: "winter_cover_kcb",
			Msg: fmt.Sprintf("need %d values but have %d", len(o.WinterCoverKcb)-1, len(kcb))}
	}
	for i, s := range kcb {
		v, err := cast.ToFloat64E(strings.TrimSpace(s))
		if err != nil {
			return nil, &cropet.ConfigError{Option: "winter_cover_kcb", Msg: err.Error()}
		}
		o.WinterCoverKcb[i+1] = v
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// parseDate parses an optional YYYY-MM-DD date.
func parseDate(option, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, &cropet.ConfigError{Option: option, Msg: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return t, nil
}

// weatherUnits reads and checks the units of the weather files.
func weatherUnits(cfg *viper.Viper) (cropet.WeatherUnits, error) {
	u := cropet.WeatherUnits{
		Temperature: cfg.GetString("temp_units"),
		Precip:      cfg.GetString("precip_units"),
		Snow:        cfg.GetString("snow_units"),
		Wind:        cfg.GetString("wind_units"),
		WindHeight:  cfg.GetFloat64("wind_height"),
		Radiation:   cfg.GetString("rs_units"),
	}
	return u, u.Validate()
}

// cellUnits reads and checks the units of the cell table.
func cellUnits(cfg *viper.Viper) (cropet.CellUnits, error) {
	u := cropet.CellUnits{
		CellElev:    strings.ToUpper(cfg.GetString("cell_elev_units")),
		StationElev: strings.ToUpper(cfg.GetString("station_elev_units")),
	}
	if _, err := cropet.ElevationConverter("cell_elev_units", u.CellElev); err != nil {
		return u, err
	}
	if _, err := cropet.ElevationConverter("station_elev_units", u.StationElev); err != nil {
		return u, err
	}
	return u, nil
}

// pairFilter reads the crop and cell skip and test lists.
func pairFilter(cfg *viper.Viper) (cropet.PairFilter, error) {
	var f cropet.PairFilter
	var err error
	if f.CropSkip, err = toIntSliceE(cfg.Get("crop_skip_list")); err != nil {
		return f, &cropet.ConfigError{Option: "crop_skip_list", Msg: err.Error()}
	}
	if f.CropTest, err = toIntSliceE(cfg.Get("crop_test_list")); err != nil {
		return f, &cropet.ConfigError{Option: "crop_test_list", Msg: err.Error()}
	}
	f.CellSkip = cfg.GetStringSlice("cell_skip_list")
	f.CellTest = cfg.GetStringSlice("cell_test_list")
	return f, nil
}

// checkInputFile makes sure that an input path is specified and
// expands any environment variables in it.
func checkInputFile(option, f string) (string, error) {
	f = os.ExpandEnv(f)
	if f == "" {
		return "", &cropet.ConfigError{Option: option, Msg: "no path specified"}
	}
	return f, nil
}

// checkOutputDir expands any environment variables in the output
// directory and creates it if it doesn't exist.
func checkOutputDir(dir string) (string, error) {
	dir = os.ExpandEnv(dir)
	if dir == "" {
		return "", &cropet.ConfigError{Option: "output_dir", Msg: "no directory specified"}
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return dir, fmt.Errorf("cropet: creating output directory: %v", err)
	}
	return dir, nil
}

// checkOutputFormat ensures that an acceptable output format was
// specified.
func checkOutputFormat(f string) (string, error) {
	f = strings.ToLower(f)
	if f != "csv" && f != "xlsx" {
		return f, &cropet.ConfigError{Option: "output_format",
			Msg: fmt.Sprintf("needs to be set to either csv or xlsx, but is currently set to `%s`", f)}
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputDir string) string {
	if logFile == "" {
		return filepath.Join(outputDir, "cropet.log")
	}
	return os.ExpandEnv(logFile)
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) map[string]string {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o
}

// toIntSliceE converts a list read from a configuration file, a
// command-line flag or an override into a slice of ints.
func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case string:
		v = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(v), "["), "]"))
		if v == "" {
			return nil, nil
		}
		var o []int
		for _, f := range strings.Split(v, ",") {
			i, err := cast.ToIntE(strings.TrimSpace(f))
			if err != nil {
				return nil, err
			}
			o = append(o, i)
		}
		return o, nil
	}
	return cast.ToIntSliceE(s)
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid type for %s: %#v", varName, i)
	}
}
