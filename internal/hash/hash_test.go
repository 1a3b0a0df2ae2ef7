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

package hash

import "testing"

type station struct {
	ID      string
	Elev    float64
	Ratios  []float64
	private map[string]int
}

type name string

func (n name) String() string { return "name " + string(n) }

func TestHash(t *testing.T) {
	a := station{ID: "USC00261", Elev: 1370, Ratios: []float64{1, 0.9}}
	b := a
	b.Ratios = []float64{1, 0.9}
	if Hash(a) != Hash(b) {
		t.Error("equal values should have equal hashes")
	}
	b.Elev = 1371
	if Hash(a) == Hash(b) {
		t.Error("different values should have different hashes")
	}
	if Hash("x", "y") == Hash("y", "x") {
		t.Error("argument order should matter")
	}
	if Hash(name("a")) != Hash(name("a")) || Hash(name("a")) == Hash(name("b")) {
		t.Error("stringers should hash by their string")
	}
	if len(Hash(a)) != 32 {
		t.Errorf("hash length %d; want 32", len(Hash(a)))
	}
}

func TestHashMaps(t *testing.T) {
	x := map[int]float64{3: 120, 7: 40, 44: 10, 55: 2}
	y := map[int]float64{55: 2, 44: 10, 7: 40, 3: 120}
	for i := 0; i < 10; i++ {
		if Hash(x) != Hash(y) {
			t.Fatal("maps with equal contents should have equal hashes")
		}
	}
	if Hash(station{private: map[string]int{"a": 1}}) == Hash(station{private: map[string]int{}}) {
		t.Error("unexported fields should contribute to the hash")
	}
}
