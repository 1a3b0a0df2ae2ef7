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

package snow

import (
	"math"
	"testing"
)

func TestPack(t *testing.T) {
	var p Pack
	if d := p.Step(100, -5, math.NaN()); d != 50 {
		t.Errorf("settled depth: got %g, want 50", d)
	}
	if d := p.Step(0, 2, math.NaN()); d != 42 {
		t.Errorf("after melt: got %g, want 42", d)
	}
	if d := p.Step(0, 1, 10); d != 10 {
		t.Errorf("observed depth caps the pack: got %g, want 10", d)
	}
	if p.Accum != 38 {
		t.Errorf("accumulation should be kept: got %g", p.Accum)
	}
	if d := p.Step(0, 20, math.NaN()); d != 0 {
		t.Errorf("pack should not go negative: got %g", d)
	}
}

func TestKcmult(t *testing.T) {
	if k := Kcmult(0, 30); k != 1 {
		t.Errorf("no snow: got %g", k)
	}
	if k := Kcmult(math.NaN(), 30); k != 1 {
		t.Errorf("missing snow: got %g", k)
	}
	for _, doy := range []int{1, 60, 180, 330, 366} {
		k := Kcmult(50, doy)
		if k <= 0 || k > 1 {
			t.Errorf("doy %d: Kcmult %g outside (0, 1]", doy, k)
		}
	}
	krad := RadiationFactor(15)
	want := 0.7 * (1 - krad + 0.2/0.75*krad)
	if k := Kcmult(20, 15); k != want {
		t.Errorf("got %g, want %g", k, want)
	}
}
