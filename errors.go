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
	"time"
)

// InputDataError is returned when a required input value is missing or
// invalid. The pair that encounters it does not advance.
type InputDataError struct {
	Cell  string
	Date  time.Time
	Field string
	Msg   string
}

func (e *InputDataError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("cropet: input data for cell %s: %s %s", e.Cell, e.Field, e.Msg)
	}
	return fmt.Sprintf("cropet: input data for cell %s on %s: %s %s",
		e.Cell, e.Date.Format(dateFormat), e.Field, e.Msg)
}

// ConfigError is returned when configuration or static input tables are
// invalid. It is reported before any simulation starts.
type ConfigError struct {
	Option string
	Msg    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cropet: invalid configuration %s: %s", e.Option, e.Msg)
}

// skipDay reports a day whose soil water balance could not be closed.
// The state is left as it was before the balance started.
type skipDay struct {
	reason string
}

func (e *skipDay) Error() string { return "cropet: day skipped: " + e.reason }

// PairError records the failure of a single (cell, crop) pair.
type PairError struct {
	Cell string
	Crop int
	Err  error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("cell %s crop %d: %v", e.Cell, e.Crop, e.Err)
}

func (e *PairError) Unwrap() error { return e.Err }

// RunError aggregates the pairs that failed during a run.
type RunError []*PairError

func (e RunError) Error() string {
	if len(e) == 1 {
		return "cropet: 1 pair failed: " + e[0].Error()
	}
	return fmt.Sprintf("cropet: %d pairs failed; first: %v", len(e), e[0])
}
