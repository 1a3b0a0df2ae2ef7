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

	"gonum.org/v1/gonum/floats"
)

// CurveType is the interpretation of the domain of a crop coefficient curve.
type CurveType int

// Crop coefficient curve types.
const (
	TimeCurve     CurveType = 1 // percent of time from planting to harvest
	GDDCurve      CurveType = 2 // percent of GDD from planting to termination
	EFCTimeCurve  CurveType = 3 // percent time to effective full cover, then to harvest
	GDDTableCurve CurveType = 4 // Kcb tabulated against cumulative GDD
)

// Progress is the development of a crop since the start of its current cycle.
type Progress struct {
	Days float64 // days since the start of the cycle
	CGDD float64 // growing degree days since the start of the cycle
}

// Curve maps crop development onto the basal crop coefficient. The
// fraction f ∈ [0, 1] is the position along the sampled coefficients.
type Curve interface {
	// Fraction returns the position along the curve for progress p.
	Fraction(p Progress) float64

	// Kcb returns the basal crop coefficient at progress p.
	Kcb(p Progress) float64

	// PastEFC reports whether effective full cover has been reached.
	PastEFC(p Progress) bool

	// Terminated reports whether the crop has reached harvest or termination.
	Terminated(p Progress) bool

	// Mid returns the largest coefficient on the curve.
	Mid() float64
}

// kcbSamples holds coefficients sampled at equal spacing over [0, 1].
type kcbSamples []float64

// at linearly interpolates the samples at f.
func (k kcbSamples) at(f float64) float64 {
	n := len(k)
	if n == 1 {
		return k[0]
	}
	x := clip(f, 0, 1) * float64(n-1)
	i := int(x)
	if i >= n-1 {
		return k[n-1]
	}
	return k[i] + (x-float64(i))*(k[i+1]-k[i])
}

func (k kcbSamples) Mid() float64 { return floats.Max(k) }

// timeCurve spans the days from planting to harvest.
type timeCurve struct {
	kcbSamples
	efc, harvest float64
}

func (c timeCurve) Fraction(p Progress) float64 { return clip(p.Days/c.harvest, 0, 1) }
func (c timeCurve) Kcb(p Progress) float64 { return c.at(c.Fraction(p)) }
func (c timeCurve) PastEFC(p Progress) bool { return p.Days >= c.efc }
func (c timeCurve) Terminated(p Progress) bool { return p.Days >= c.harvest }

// gddCurve spans the growing degree days from planting to termination.
type gddCurve struct {
	kcbSamples
	efc, termination float64
}

func (c gddCurve) Fraction(p Progress) float64 { return clip(p.CGDD/c.termination, 0, 1) }
func (c gddCurve) Kcb(p Progress) float64 { return c.at(c.Fraction(p)) }
func (c gddCurve) PastEFC(p Progress) bool { return p.CGDD >= c.efc }
func (c gddCurve) Terminated(p Progress) bool { return p.CGDD >= c.termination }

// efcTimeCurve maps the days to effective full cover onto the first half
// of the samples and the remaining days to harvest onto the second half.
type efcTimeCurve struct {
	kcbSamples
	efc, harvest float64
}

func (c efcTimeCurve) Fraction(p Progress) float64 {
	if p.Days < c.efc {
		return clip(0.5*p.Days/c.efc, 0, 0.5)
	}
	return clip(0.5+0.5*(p.Days-c.efc)/(c.harvest-c.efc), 0.5, 1)
}
func (c efcTimeCurve) Kcb(p Progress) float64 { return c.at(c.Fraction(p)) }
func (c efcTimeCurve) PastEFC(p Progress) bool { return p.Days >= c.efc }
func (c efcTimeCurve) Terminated(p Progress) bool { return p.Days >= c.harvest }

// gddTableCurve tabulates coefficients against cumulative GDD knots.
type gddTableCurve struct {
	kcbSamples
	gdd              []float64
	efc, termination float64
}

func (c gddTableCurve) Fraction(p Progress) float64 {
	n := len(c.gdd)
	if n < 2 || p.CGDD <= c.gdd[0] {
		return 0
	}
	if p.CGDD >= c.gdd[n-1] {
		return 1
	}
	i := 0
	for i < n-2 && p.CGDD >= c.gdd[i+1] {
		i++
	}
	frac := (p.CGDD - c.gdd[i]) / (c.gdd[i+1] - c.gdd[i])
	return (float64(i) + frac) / float64(n-1)
}
func (c gddTableCurve) Kcb(p Progress) float64 { return c.at(c.Fraction(p)) }
func (c gddTableCurve) PastEFC(p Progress) bool { return p.CGDD >= c.efc }
func (c gddTableCurve) Terminated(p Progress) bool { return p.CGDD >= c.termination }

// newCurve builds the curve described by the crop parameters.
func newCurve(p *CropParams) (Curve, error) {
	opt := fmt.Sprintf("crop %d", p.ClassNumber)
	if len(p.Kcb) == 0 {
		return nil, &ConfigError{Option: opt, Msg: "no kcb curve values"}
	}
	for _, v := range p.Kcb {
		if math.IsNaN(v) || v < 0 || v > 2 {
			return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("kcb value %g outside [0, 2]", v)}
		}
	}
	k := kcbSamples(p.Kcb)
	positive := func(name string, v float64) error {
		if !(v > 0) {
			return &ConfigError{Option: opt, Msg: fmt.Sprintf("%s must be > 0 for curve type %d", name, p.CurveType)}
		}
		return nil
	}
	switch p.CurveType {
	case TimeCurve:
		if err := positive("time_for_harvest", p.TimeForHarvest); err != nil {
			return nil, err
		}
		return timeCurve{kcbSamples: k, efc: p.TimeForEFC, harvest: p.TimeForHarvest}, nil
	case GDDCurve:
		if err := positive("cgdd_for_termination", p.CGDDForTermination); err != nil {
			return nil, err
		}
		return gddCurve{kcbSamples: k, efc: p.CGDDForEFC, termination: p.CGDDForTermination}, nil
	case EFCTimeCurve:
		if err := positive("time_for_efc", p.TimeForEFC); err != nil {
			return nil, err
		}
		if !(p.TimeForHarvest > p.TimeForEFC) {
			return nil, &ConfigError{Option: opt, Msg: "time_for_harvest must exceed time_for_efc"}
		}
		return efcTimeCurve{kcbSamples: k, efc: p.TimeForEFC, harvest: p.TimeForHarvest}, nil
	case GDDTableCurve:
		if len(k) < 2 {
			return nil, &ConfigError{Option: opt, Msg: "curve type 4 needs at least 2 kcb values"}
		}
		gdd := p.KcbGDD
		if len(gdd) == 0 {
			if err := positive("cgdd_for_termination", p.CGDDForTermination); err != nil {
				return nil, err
			}
			gdd = make([]float64, len(k))
			floats.Span(gdd, 0, p.CGDDForTermination)
		}
		if len(gdd) != len(k) {
			return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("%d kcb_gdd knots for %d kcb values", len(gdd), len(k))}
		}
		for i := 1; i < len(gdd); i++ {
			if !(gdd[i] > gdd[i-1]) {
				return nil, &ConfigError{Option: opt, Msg: "kcb_gdd knots must increase"}
			}
		}
		term := p.CGDDForTermination
		if !(term > 0) {
			term = gdd[len(gdd)-1]
		}
		return gddTableCurve{kcbSamples: k, gdd: gdd, efc: p.CGDDForEFC, termination: term}, nil
	}
	return nil, &ConfigError{Option: opt, Msg: fmt.Sprintf("unknown curve type %d", p.CurveType)}
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
