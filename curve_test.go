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
	"errors"
	"testing"
)

func TestTimeCurve(t *testing.T) {
	p := cornParams()
	p.CurveType = TimeCurve
	p.Kcb = []float64{0.2, 1.0, 0.4}
	p.TimeForEFC, p.TimeForHarvest = 50, 100
	c, err := newCurve(&p)
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		days, f, kcb float64
	}{
		{0, 0, 0.2},
		{25, 0.25, 0.6},
		{50, 0.5, 1.0},
		{75, 0.75, 0.7},
		{150, 1, 0.4},
	} {
		p := Progress{Days: tt.days}
		if f := c.Fraction(p); different(f, tt.f, 1e-12) {
			t.Errorf("day %g: fraction %g, want %g", tt.days, f, tt.f)
		}
		if k := c.Kcb(p); different(k, tt.kcb, 1e-12) {
			t.Errorf("day %g: kcb %g, want %g", tt.days, k, tt.kcb)
		}
	}
	if c.PastEFC(Progress{Days: 49}) || !c.PastEFC(Progress{Days: 50}) {
		t.Error("effective full cover should be reached on day 50")
	}
	if !c.Terminated(Progress{Days: 100}) {
		t.Error("crop should be harvested on day 100")
	}
	if c.Mid() != 1 {
		t.Errorf("mid = %g", c.Mid())
	}
}

func TestGDDCurve(t *testing.T) {
	p := cornParams()
	p.Kcb = []float64{0.2, 1.0, 0.4}
	p.CGDDForEFC, p.CGDDForTermination = 600, 1600
	c, err := newCurve(&p)
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		cgdd, f, kcb float64
		efc, done    bool
	}{
		{0, 0, 0.2, false, false},
		{400, 0.25, 0.6, false, false},
		{600, 0.375, 0.8, true, false},
		{1200, 0.75, 0.7, true, false},
		{1600, 1, 0.4, true, true},
		{2400, 1, 0.4, true, true},
	} {
		p := Progress{Days: 10, CGDD: tt.cgdd}
		if f := c.Fraction(p); different(f, tt.f, 1e-12) {
			t.Errorf("cgdd %g: fraction %g, want %g", tt.cgdd, f, tt.f)
		}
		if k := c.Kcb(p); different(k, tt.kcb, 1e-12) {
			t.Errorf("cgdd %g: kcb %g, want %g", tt.cgdd, k, tt.kcb)
		}
		if c.PastEFC(p) != tt.efc || c.Terminated(p) != tt.done {
			t.Errorf("cgdd %g: past efc = %v, terminated = %v", tt.cgdd, c.PastEFC(p), c.Terminated(p))
		}
	}
}

func TestEFCTimeCurve(t *testing.T) {
	p := cornParams()
	p.CurveType = EFCTimeCurve
	p.Kcb = []float64{0.2, 1.0, 0.4}
	p.TimeForEFC, p.TimeForHarvest = 40, 120
	c, err := newCurve(&p)
	if err != nil {
		t.Fatal(err)
	}
	if f := c.Fraction(Progress{Days: 20}); different(f, 0.25, 1e-12) {
		t.Errorf("fraction before EFC = %g", f)
	}
	if f := c.Fraction(Progress{Days: 40}); different(f, 0.5, 1e-12) {
		t.Errorf("fraction at EFC = %g", f)
	}
	if f := c.Fraction(Progress{Days: 80}); different(f, 0.75, 1e-12) {
		t.Errorf("fraction after EFC = %g", f)
	}
}

func TestGDDTableCurve(t *testing.T) {
	p := cornParams()
	p.CurveType = GDDTableCurve
	p.Kcb = []float64{0.2, 1.0, 1.0, 0.4}
	p.KcbGDD = []float64{0, 500, 1200, 1500}
	p.CGDDForTermination = 0
	c, err := newCurve(&p)
	if err != nil {
		t.Fatal(err)
	}
	if k := c.Kcb(Progress{CGDD: 250}); different(k, 0.6, 1e-12) {
		t.Errorf("kcb at 250 = %g", k)
	}
	if k := c.Kcb(Progress{CGDD: 1350}); different(k, 0.7, 1e-12) {
		t.Errorf("kcb at 1350 = %g", k)
	}
	if c.Terminated(Progress{CGDD: 1499}) || !c.Terminated(Progress{CGDD: 1500}) {
		t.Error("termination should default to the last knot")
	}
}

func TestNewCurveErrors(t *testing.T) {
	for name, mod := range map[string]func(p *CropParams){
		"no values":    func(p *CropParams) { p.Kcb = nil },
		"bad value":    func(p *CropParams) { p.Kcb = []float64{0.1, 3} },
		"unknown type": func(p *CropParams) { p.CurveType = 9 },
		"no harvest":   func(p *CropParams) { p.CurveType = TimeCurve },
		"efc after harvest": func(p *CropParams) {
			p.CurveType = EFCTimeCurve
			p.TimeForEFC, p.TimeForHarvest = 50, 40
		},
		"knot count": func(p *CropParams) {
			p.CurveType = GDDTableCurve
			p.KcbGDD = []float64{0, 100}
		},
	} {
		p := cornParams()
		mod(&p)
		_, err := newCurve(&p)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%s: got %v, want ConfigError", name, err)
		}
	}
}
