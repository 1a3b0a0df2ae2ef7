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

	"github.com/lnashier/viper"
	"github.com/spatialmodel/cropet"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to CropET.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log_level",
			usage: `
              log_level specifies the minimum level of log messages:
              debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log_file",
			usage: `
              log_file specifies the path to the file where log messages
              are written in addition to standard output. The default is
              cropet.log in output_dir.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "cells",
			usage: `
              cells specifies the ET cell table, either a shapefile (.shp)
              whose attribute table holds one cell per record or a YAML
              document (.yaml or .yml) with a top-level "cells" list.`,
			shorthand:  "c",
			defaultVal: "cells.yaml",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "crops",
			usage: `
              crops specifies the TOML file holding the crop parameters
              and crop coefficient curves.`,
			defaultVal: "crops.toml",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "weather_dir",
			usage: `
              weather_dir specifies the directory holding one daily weather
              file per station, named <station_id>.csv.`,
			defaultVal: "weather",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "refet_dir",
			usage: `
              refet_dir specifies the directory holding one daily reference
              ET file per station, named <station_id>.csv.`,
			defaultVal: "refet",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "refet_type",
			usage: `
              refet_type specifies the reference ET series the crop
              coefficients are based on: ETo (grass) or ETr (alfalfa).`,
			defaultVal: "ETo",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "start_date",
			usage: `
              start_date specifies the first simulated day (YYYY-MM-DD).
              The default is the start of the weather record.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "end_date",
			usage: `
              end_date specifies the last simulated day (YYYY-MM-DD).
              The default is the end of the weather record.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "phenology_option",
			usage: `
              phenology_option selects which crops use the alternate
              weather station for temperature-driven phenology: 0 none,
              1 annual crops, 2 perennial crops, 3 all crops.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "co2_correction",
			usage: `
              co2_correction specifies whether basal crop coefficients are
              scaled by the CO2 factors in the weather files.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "planting_window_days",
			usage: `
              planting_window_days specifies the number of days either
              side of the long-term planting date in which annual crops
              may be planted.`,
			defaultVal: 40,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "irr_min",
			usage: `
              irr_min specifies the minimum net depth of an automatic
              irrigation [mm].`,
			defaultVal: 10.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "winter_cover_kcb",
			usage: `
              winter_cover_kcb specifies the basal crop coefficients of the
              bare, mulch and sod winter cover classes.`,
			defaultVal: []string{"0.1", "0.1", "0.1"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "temp_units",
			usage: `
              temp_units specifies the units of the temperature columns of
              the weather files: C, F or K.`,
			defaultVal: "C",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "precip_units",
			usage: `
              precip_units specifies the units of precipitation: mm, cm, m
              or in.`,
			defaultVal: "mm",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "snow_units",
			usage: `
              snow_units specifies the units of snowfall and snow depth.`,
			defaultVal: "mm",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "wind_units",
			usage: `
              wind_units specifies the units of wind speed: m/s, km/h, mph
              or mpd.`,
			defaultVal: "m/s",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "wind_height",
			usage: `
              wind_height specifies the height of the anemometer [m].`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "rs_units",
			usage: `
              rs_units specifies the units of solar radiation: W/m2,
              MJ/m2/d or langley.`,
			defaultVal: "MJ/m2/d",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "cell_elev_units",
			usage: `
              cell_elev_units specifies the units of cell elevations in the
              cell table: FEET or METERS.`,
			defaultVal: "METERS",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "station_elev_units",
			usage: `
              station_elev_units specifies the units of station elevations
              in the cell table: FEET or METERS.`,
			defaultVal: "METERS",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "crop_skip_list",
			usage: `
              crop_skip_list specifies crop class numbers that are not
              simulated.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "crop_test_list",
			usage: `
              crop_test_list specifies the only crop class numbers that are
              simulated. An empty list means all crops.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "cell_skip_list",
			usage: `
              cell_skip_list specifies cell IDs that are not simulated.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "cell_test_list",
			usage: `
              cell_test_list specifies the only cell IDs that are
              simulated. An empty list means all cells.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "output_dir",
			usage: `
              output_dir specifies the directory where the daily results of
              each cell and crop pair are written.`,
			shorthand:  "o",
			defaultVal: "output",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "output_format",
			usage: `
              output_format specifies the format of the daily results: csv
              or xlsx.`,
			defaultVal: "csv",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "kc_flag",
			usage: `
              kc_flag specifies whether the actual and basal crop
              coefficients are included in the daily results.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "niwr_flag",
			usage: `
              niwr_flag specifies whether the net irrigation water
              requirement is included in the daily results.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "cutting_flag",
			usage: `
              cutting_flag specifies whether cutting days are flagged in the
              daily results.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies additional columns of the daily
              results and the expressions used to calculate them from the
              model variables (ETref, Precip, EtcAct, NIWR, ...) and from
              each other. Names may be at most 10 characters.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "summary_file",
			usage: `
              summary_file specifies a shapefile where the mean annual
              totals of each pair are written. No summary is written if it
              is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "checkpoint_dir",
			usage: `
              checkpoint_dir specifies a directory where the final state of
              each pair is saved, so that a later run can continue from it.
              No states are saved if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "resume",
			usage: `
              resume specifies whether pairs continue from the states saved
              in checkpoint_dir.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "cache_size",
			usage: `
              cache_size specifies the number of prepared station climates
              kept in memory.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "metrics_addr",
			usage: `
              metrics_addr specifies the address (e.g. :9090) where run
              metrics are served for Prometheus at /metrics. Metrics are
              not served if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "progress",
			usage: `
              progress specifies whether a progress bar is shown while the
              pairs run.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CROPET")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(validateCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("cropet: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "cropet",
	Short: "A daily crop evapotranspiration and soil water balance model.",
	Long: `CropET simulates daily crop evapotranspiration, net irrigation water
requirements and soil water balance for every crop grown in a set of
ET cells. Use the subcommands specified below to access the model
functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CROPET_var' where 'var' is the
name of the variable to be set. File and directory paths are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of CropET.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("CropET v%s\n", cropet.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs a simulation.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run simulates every crop grown in every ET cell over the weather
record and writes the daily results of each cell and crop pair to
output_dir. A pair that fails does not stop the others; the failed
pairs are listed when the run ends.

	Daily output columns:
	etref: Reference ET [mm]
	precip: Precipitation [mm]
	t30: 30-day mean air temperature [°C]
	etc_act, etc_pot, etc_bas: Actual, potential and basal crop ET [mm]
	kc_act, kc_bas: Actual and basal crop coefficients (kc_flag)
	irrigation, runoff, dperc: Irrigation, runoff and deep percolation [mm]
	niwr: Net irrigation water requirement [mm] (niwr_flag)
	season: 1 during the growing season
	cutting: 1 on cutting days (cutting_flag)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := NewRunConfig(Cfg)
		if err != nil {
			return err
		}
		return Run(cmd, rc)
	},
	DisableAutoGenTag: true,
}

// validateCmd is a command that checks the inputs without running.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the model inputs.",
	Long: `validate loads the configuration, cells, crops and weather and
reports the cell and crop pairs that would be simulated, without running
them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ic, err := NewInputConfig(Cfg)
		if err != nil {
			return err
		}
		return Validate(cmd, ic)
	},
	DisableAutoGenTag: true,
}
