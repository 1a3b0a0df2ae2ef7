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
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
)

// OutputFlags selects the optional columns of the daily output.
type OutputFlags struct {
	Kc      bool // kc_act and kc_bas
	NIWR    bool
	Cutting bool
}

// resultVars maps the names of the variables available to output
// expressions to their values in a DayResult.
var resultVars = map[string]func(r *DayResult) float64{
	"ETref":      func(r *DayResult) float64 { return r.ETref },
	"Precip":     func(r *DayResult) float64 { return r.Precip },
	"T30":        func(r *DayResult) float64 { return r.T30 },
	"EtcAct":     func(r *DayResult) float64 { return r.EtcAct },
	"EtcPot":     func(r *DayResult) float64 { return r.EtcPot },
	"EtcBas":     func(r *DayResult) float64 { return r.EtcBas },
	"KcAct":      func(r *DayResult) float64 { return r.KcAct },
	"KcBas":      func(r *DayResult) float64 { return r.KcBas },
	"Irrigation": func(r *DayResult) float64 { return r.Irrigation },
	"Runoff":     func(r *DayResult) float64 { return r.Runoff },
	"DPerc":      func(r *DayResult) float64 { return r.DPerc },
	"NIWR":       func(r *DayResult) float64 { return r.NIWR },
	"Season":     func(r *DayResult) float64 { return flag(r.Season) },
	"Cutting":    func(r *DayResult) float64 { return flag(r.Cutting) },
	"Fc":         func(r *DayResult) float64 { return r.Fc },
	"Zr":         func(r *DayResult) float64 { return r.Zr },
	"Height":     func(r *DayResult) float64 { return r.Height },
	"DeplRoot":   func(r *DayResult) float64 { return r.DeplRoot },
	"DOY":        func(r *DayResult) float64 { return float64(r.DOY) },
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// column is one column of the daily output. Derived columns have no
// value function.
type column struct {
	name  string
	value func(r *DayResult) interface{}
}

func floatColumn(name string, f func(r *DayResult) float64) column {
	return column{name: name, value: func(r *DayResult) interface{} { return f(r) }}
}

func flagColumn(name string, f func(r *DayResult) bool) column {
	return column{name: name, value: func(r *DayResult) interface{} { return int(flag(f(r))) }}
}

// Outputter determines the columns of the daily output of a pair.
//
// outputVariables maps the names of additional columns to expressions
// that define how they are calculated from the variables in each daily
// result (ETref, Precip, EtcAct, NIWR, ...) and from each other.
//
// Functions are defined in the outputFunctions variable.
type Outputter struct {
	flags           OutputFlags
	outputVariables map[string]string
	outputFunctions map[string]govaluate.ExpressionFunction
	derived         []string
	expressions     map[string]*govaluate.EvaluableExpression
	columns         []column
}

// NewOutputter initializes a new Outputter and adds a set of default
// output functions. Default functions include:
//
// 'exp(x)' which applies the exponential function e^x.
//
// 'mm2in(x)' which converts millimeters to inches.
//
// 'max(x, y)' and 'min(x, y)' which return the larger or smaller argument.
func NewOutputter(flags OutputFlags, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("cropet: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"mm2in": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("cropet: got %d arguments for function 'mm2in', but needs 1", len(arg))
			}
			return arg[0].(float64) / 25.4, nil
		},
		"max": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("cropet: got %d arguments for function 'max', but needs 2", len(arg))
			}
			return math.Max(arg[0].(float64), arg[1].(float64)), nil
		},
		"min": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("cropet: got %d arguments for function 'min', but needs 2", len(arg))
			}
			return math.Min(arg[0].(float64), arg[1].(float64)), nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}
	o := &Outputter{
		flags:           flags,
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: defaultOutputFuncs,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	for k, v := range outputVariables {
		o.outputVariables[k] = v
	}
	if err := checkOutputNames(o.outputVariables); err != nil {
		return nil, err
	}
	if err := o.orderDerivatives(); err != nil {
		return nil, err
	}
	o.columns = o.baseColumns()
	for _, name := range o.derived {
		o.columns = append(o.columns, column{name: name})
	}
	return o, nil
}

// baseColumns returns the fixed output columns.
func (o *Outputter) baseColumns() []column {
	c := []column{
		{name: "date", value: func(r *DayResult) interface{} { return r.Date }},
		{name: "doy", value: func(r *DayResult) interface{} { return r.DOY }},
		floatColumn("etref", resultVars["ETref"]),
		floatColumn("precip", resultVars["Precip"]),
		floatColumn("t30", resultVars["T30"]),
		floatColumn("etc_act", resultVars["EtcAct"]),
		floatColumn("etc_pot", resultVars["EtcPot"]),
		floatColumn("etc_bas", resultVars["EtcBas"]),
	}
	if o.flags.Kc {
		c = append(c, floatColumn("kc_act", resultVars["KcAct"]), floatColumn("kc_bas", resultVars["KcBas"]))
	}
	c = append(c,
		floatColumn("irrigation", resultVars["Irrigation"]),
		floatColumn("runoff", resultVars["Runoff"]),
		floatColumn("dperc", resultVars["DPerc"]),
	)
	if o.flags.NIWR {
		c = append(c, floatColumn("niwr", resultVars["NIWR"]))
	}
	c = append(c, flagColumn("season", func(r *DayResult) bool { return r.Season }))
	if o.flags.Cutting {
		c = append(c, flagColumn("cutting", func(r *DayResult) bool { return r.Cutting }))
	}
	return c
}

// Columns returns the names of the output columns.
func (o *Outputter) Columns() []string {
	names := make([]string, len(o.columns))
	for i, c := range o.columns {
		names[i] = c.name
	}
	return names
}

// Row returns the values of the output columns for r. Values are
// time.Time, int or float64.
func (o *Outputter) Row(r *DayResult) ([]interface{}, error) {
	row := make([]interface{}, len(o.columns))
	var derived map[string]float64
	if len(o.derived) > 0 {
		var err error
		if derived, err = o.evaluate(r); err != nil {
			return nil, err
		}
	}
	for i, c := range o.columns {
		if c.value == nil {
			row[i] = derived[c.name]
		} else {
			row[i] = c.value(r)
		}
	}
	return row, nil
}

// evaluate calculates the derived variables for r, in dependency order.
func (o *Outputter) evaluate(r *DayResult) (map[string]float64, error) {
	params := make(map[string]interface{}, len(resultVars)+len(o.derived))
	for name, f := range resultVars {
		params[name] = f(r)
	}
	out := make(map[string]float64, len(o.derived))
	for _, name := range o.derived {
		v, err := o.expressions[name].Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("cropet: evaluating output variable %s: %v", name, err)
		}
		f, ok := v.(float64)
		if !ok {
			if b, isBool := v.(bool); isBool {
				f = flag(b)
			} else {
				return nil, fmt.Errorf("cropet: output variable %s is %T, not a number", name, v)
			}
		}
		params[name] = f
		out[name] = f
	}
	return out, nil
}

// orderDerivatives parses the output variable expressions and orders
// them so that each is calculated after the variables it uses.
func (o *Outputter) orderDerivatives() error {
	deps := make(map[string][]string, len(o.outputVariables))
	for key, val := range o.outputVariables {
		if _, ok := resultVars[key]; ok {
			return fmt.Errorf("cropet: output variable name '%s' is a model variable", key)
		}
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
		if err != nil {
			return fmt.Errorf("cropet: output variable %s: %v", key, err)
		}
		o.expressions[key] = expression
		for _, v := range removeDuplicates(expression.Vars()) {
			if _, ok := o.outputVariables[v]; ok {
				deps[key] = append(deps[key], v)
			} else if _, ok := resultVars[v]; !ok {
				return fmt.Errorf("cropet: undefined variable name '%s' in output variable %s", v, key)
			}
		}
	}
	names := make([]string, 0, len(o.outputVariables))
	for k := range o.outputVariables {
		names = append(names, k)
	}
	sort.Strings(names)
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(names))
	var visit func(n string) error
	visit = func(n string) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("cropet: output variable %s is defined in terms of itself", n)
		case done:
			return nil
		}
		state[n] = visiting
		for _, d := range deps[n] {
			if err := visit(d); err != nil {
				return err
			}
		}
		state[n] = done
		o.derived = append(o.derived, n)
		return nil
	}
	for _, n := range names {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]string)
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = val
		}
	}
	return result
}

var outputNameRegexp = regexp.MustCompile(`^[A-Za-z]\w*$`)

// checkOutputNames checks that output variable names can be used as
// column headers and as shapefile field names.
func checkOutputNames(o map[string]string) error {
	for key := range o {
		long := len(key) > 10
		bad := !outputNameRegexp.MatchString(key)
		switch {
		case long && bad:
			return fmt.Errorf("cropet: output variable name '%s' exceeds 10 characters and includes unsupported character(s)", key)
		case long:
			return fmt.Errorf("cropet: output variable name '%s' exceeds 10 characters", key)
		case bad:
			return fmt.Errorf("cropet: output variable name '%s' includes unsupported characters", key)
		case strings.TrimSpace(o[key]) == "":
			return fmt.Errorf("cropet: output variable '%s' has an empty expression", key)
		}
	}
	return nil
}
