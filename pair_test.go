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
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// midSeason puts a corn pair in the middle of its season on the day
// before d.
func midSeason(p *Pair, d time.Time) {
	s := p.State
	s.InSeason = true
	s.SeasonYear = d.Year()
	s.CycleStart = d.AddDate(0, 0, -60)
	s.CGDD = 986.5
	s.ReachedEFC = true
	s.MAD = s.MADMid
	s.KcBas = 1.15
	s.Height = s.HeightMax
	s.Zr = s.ZrMax
	s.AW3 = 0
	s.DeplRoot = 5
	s.DeplZe = s.TEW
	s.DeplZep = s.TEW
	s.LastDate = d.AddDate(0, 0, -1)
}

func summerDay(d time.Time) *DayInput {
	return &DayInput{
		Date:      d,
		DOY:       d.YearDay(),
		Month:     d.Month(),
		ETref:     7,
		ETref30:   6.5,
		Tmax:      32,
		Tmin:      15,
		Tmean:     23.5,
		T30:       22,
		U2:        2,
		RHMin:     30,
		CO2:       1,
		PhenT30:   22,
		PhenCGDD0: 1500,
	}
}

func TestWinterBareSoil(t *testing.T) {
	p := testPair(t, bareSoilParams(), DefaultOptions())
	d := date(2000, 1, 15)
	r, err := p.Step(&DayInput{
		Date: d, DOY: 15, Month: d.Month(),
		ETref: 1.5, ETref30: 1.5,
		Tmax: 5, Tmin: -5, Tmean: 0, T30: 0,
		U2: 2, RHMin: math.NaN(), CO2: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if different(r.KcBas, 0.1, 1e-12) {
		t.Errorf("kc_bas = %g, want 0.1", r.KcBas)
	}
	if r.Fc != 0 {
		t.Errorf("fc = %g, want 0", r.Fc)
	}
	if different(r.EtcBas, 0.15, 1e-12) {
		t.Errorf("etc_bas = %g, want 0.15", r.EtcBas)
	}
	if r.Runoff != 0 || r.DPerc != 0 || r.Season {
		t.Errorf("runoff = %g, dperc = %g, season = %v", r.Runoff, r.DPerc, r.Season)
	}
}

func TestMidSeasonCorn(t *testing.T) {
	p := testPair(t, cornParams(), DefaultOptions())
	d := date(2000, 6, 28)
	midSeason(p, d)
	r, err := p.Step(summerDay(d))
	if err != nil {
		t.Fatal(err)
	}
	if r.DOY != 180 {
		t.Fatalf("doy = %d", r.DOY)
	}
	if different(r.KcBas, 1.15, 1e-9) {
		t.Errorf("kc_bas = %g, want 1.15", r.KcBas)
	}
	if p.State.KcMax < 1.2 {
		t.Errorf("kc_max = %g, want >= 1.2", p.State.KcMax)
	}
	if different(r.EtcPot, 8, 0.2) {
		t.Errorf("etc_pot = %g, want about 8", r.EtcPot)
	}
	if r.EtcAct != r.EtcPot {
		t.Errorf("unstressed crop: etc_act = %g, etc_pot = %g", r.EtcAct, r.EtcPot)
	}
	if r.Irrigation != 0 {
		t.Errorf("irrigation = %g", r.Irrigation)
	}
}

func TestAutoIrrigation(t *testing.T) {
	cp := cornParams()
	cp.CropFW = 0.7
	p := testPair(t, cp, DefaultOptions())
	d := date(2000, 6, 28)
	midSeason(p, d)
	s := p.State
	s.DeplRoot = 100
	s.FwIrr = s.FwSpec
	s.CumEvapPrev = 5

	trigger := -1
	var irr float64
	for i := 0; i < 10; i++ {
		before := s.DeplRoot
		r, err := p.Step(summerDay(d.AddDate(0, 0, i)))
		if err != nil {
			t.Fatal(err)
		}
		if s.IrrAuto == 0 {
			continue
		}
		trigger = i
		irr = r.Irrigation
		if r.Irrigation < math.Max(before, s.IrrMin) {
			t.Errorf("irrigation %g is less than depletion %g", r.Irrigation, before)
		}
		if s.CumEvapPrev != 0 || s.CumEvap < 5 {
			t.Errorf("cum_evap = %g, cum_evap_prev = %g", s.CumEvap, s.CumEvapPrev)
		}
		break
	}
	if trigger != 3 {
		t.Fatalf("irrigation on day %d, want day 3", trigger)
	}
	if !(irr >= 10) {
		t.Errorf("irrigation = %g", irr)
	}
	if _, err := p.Step(summerDay(d.AddDate(0, 0, trigger+1))); err != nil {
		t.Fatal(err)
	}
	if s.FwIrr != 0.7 {
		t.Errorf("fw_irr = %g after irrigation, want 0.7", s.FwIrr)
	}
	if s.DeplZe >= s.TEW/2 {
		t.Errorf("irrigation did not wet the surface: depl_ze = %g", s.DeplZe)
	}
}

func TestObservedIrrigation(t *testing.T) {
	cp := cornParams()
	cp.CropFW = 0.7
	p := testPair(t, cp, DefaultOptions())
	d := date(2000, 6, 28)
	midSeason(p, d)
	s := p.State
	s.IrrFlag = false

	day := func(i int, special, std float64) *DayInput {
		t.Helper()
		cd, ok := p.clim.Day(d.AddDate(0, 0, i))
		if !ok {
			t.Fatalf("no climate on day %d", i)
		}
		cd.IrrSpecial, cd.IrrReal = special, std
		in, err := p.Input(cd)
		if err != nil {
			t.Fatal(err)
		}
		return in
	}

	in := day(0, 30, math.NaN())
	if in.IrrSpecial != 30 || in.IrrReal != 0 || in.IrrManual != 0 {
		t.Fatalf("irrigation input = %g %g %g", in.IrrReal, in.IrrManual, in.IrrSpecial)
	}
	r, err := p.Step(in)
	if err != nil {
		t.Fatal(err)
	}
	if r.Irrigation != 30 || s.IrrAuto != 0 {
		t.Errorf("irrigation = %g, automatic = %g, want 30 and 0", r.Irrigation, s.IrrAuto)
	}
	if !s.IrrSpecPrev || s.IrrStdPrev {
		t.Errorf("special = %v, standard = %v", s.IrrSpecPrev, s.IrrStdPrev)
	}
	if _, err := p.Step(day(1, 0, 12)); err != nil {
		t.Fatal(err)
	}
	if s.FwIrr != 1 {
		t.Errorf("fw_irr = %g after special irrigation, want 1", s.FwIrr)
	}
	if !s.IrrStdPrev || s.IrrSpecPrev {
		t.Errorf("special = %v, standard = %v", s.IrrSpecPrev, s.IrrStdPrev)
	}
	if _, err := p.Step(day(2, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if s.FwIrr != 0.7 {
		t.Errorf("fw_irr = %g after observed irrigation, want 0.7", s.FwIrr)
	}
}

func TestOpenWater(t *testing.T) {
	p := testPair(t, openWaterParams(), DefaultOptions())
	d := date(2000, 7, 4)
	before := *p.State
	in := summerDay(d)
	in.Precip = 3
	r, err := p.Step(in)
	if err != nil {
		t.Fatal(err)
	}
	if r.EtcAct != 7 || r.EtcPot != 7 || r.EtcBas != 7 {
		t.Errorf("etc = %g %g %g, want 7", r.EtcAct, r.EtcPot, r.EtcBas)
	}
	if r.NIWR != 4 {
		t.Errorf("niwr = %g, want 4", r.NIWR)
	}
	before.LastDate = d
	before.Totals = Totals{Days: 1, EtcAct: 7, NIWR: 4, Precip: 3}
	if diff := cmp.Diff(before, *p.State); diff != "" {
		t.Errorf("open water changed the state (-want +got):\n%s", diff)
	}
}

func TestKillingFrost(t *testing.T) {
	p := testPair(t, cornParams(), DefaultOptions())
	d := date(2000, 10, 21)
	midSeason(p, d)
	s := p.State
	s.CGDD = 1500
	s.Zr = 1.2
	s.AW3 = 100
	s.DeplRoot = 60
	in := summerDay(d)
	in.Tmax, in.Tmin, in.Tmean = 8, -4, 2
	in.ETref, in.ETref30 = 2, 2.5
	r, err := p.Step(in)
	if err != nil {
		t.Fatal(err)
	}
	if r.DOY != 295 {
		t.Fatalf("doy = %d", r.DOY)
	}
	if r.Season || s.InSeason || !s.DormantPending {
		t.Fatalf("season = %v, dormant pending = %v", s.InSeason, s.DormantPending)
	}
	inRoot := s.AW*s.Zr - s.DeplRoot
	below := s.AW3 * (s.ZrMax - s.Zr)
	want := (inRoot + below) / s.ZrMax

	next := summerDay(d.AddDate(0, 0, 1))
	next.Tmin, next.ETref = 0, 2
	if _, err := p.Step(next); err != nil {
		t.Fatal(err)
	}
	if s.DormantPending {
		t.Error("dormant setup did not run")
	}
	if s.Zr != 0.1 {
		t.Errorf("zr = %g, want 0.1", s.Zr)
	}
	if different(s.AW3, want, 1e-9) {
		t.Errorf("aw3 = %g, want %g", s.AW3, want)
	}
	if s.AW3 < 0 || s.AW3 > s.AW {
		t.Errorf("aw3 = %g outside [0, %g]", s.AW3, s.AW)
	}
}

func TestHeavyRainOnDrySoil(t *testing.T) {
	p := testPair(t, bareSoilParams(), DefaultOptions())
	s := p.State
	s.DeplZe, s.DeplZep = s.TEW, s.TEW
	d := date(2000, 7, 1)
	in := summerDay(d)
	in.Precip = 40
	in.ETref = 4
	r, err := p.Step(in)
	if err != nil {
		t.Fatal(err)
	}
	if !(r.Runoff > 0) {
		t.Errorf("runoff = %g, want > 0", r.Runoff)
	}
	if different(s.PptInf+s.Sro, 40, 1e-9) {
		t.Errorf("infiltration %g + runoff %g != 40", s.PptInf, s.Sro)
	}
	if s.DeplZe >= s.TEW/2 {
		t.Errorf("depl_ze = %g did not drop toward 0 (tew %g)", s.DeplZe, s.TEW)
	}
}

// checkInvariants checks the conditions that must hold after every day.
func checkInvariants(t *testing.T, p *Pair, r *DayResult) {
	t.Helper()
	const eps = 0.2
	s := p.State
	fail := func(format string, args ...interface{}) {
		t.Helper()
		t.Fatalf("%s %s: "+format, append([]interface{}{p.Name(), r.Date.Format(dateFormat)}, args...)...)
	}
	if s.DeplZe < 0 || s.DeplZe > s.TEW+eps || s.DeplZep < 0 || s.DeplZep > s.TEW+eps {
		fail("depl_ze = %g, depl_zep = %g, tew = %g", s.DeplZe, s.DeplZep, s.TEW)
	}
	overdrawn := p.Crop.InvokeStress != NoStress && s.DeplRoot > s.TAW()+eps
	if s.DeplRoot < -fieldCapacityBuffer-1e-9 || overdrawn {
		fail("depl_root = %g, taw = %g", s.DeplRoot, s.TAW())
	}
	if s.AW3 < 0 || s.AW3 > s.AW+1e-9 {
		fail("aw3 = %g", s.AW3)
	}
	if s.Zr < s.ZrMin || s.Zr > s.ZrMax {
		fail("zr = %g", s.Zr)
	}
	if r.Skipped {
		return
	}
	if r.KcAct > s.KcPot+1e-12 || r.KcBas > s.KcPot+1e-12 {
		fail("kc_act = %g, kc_bas = %g, kc_pot = %g", r.KcAct, r.KcBas, s.KcPot)
	}
	if s.Few+s.Fewp > 1-s.Fc+2*0.001+1e-12 {
		fail("few = %g, fewp = %g, fc = %g", s.Few, s.Fewp, s.Fc)
	}
	if r.Irrigation == 0 && different(r.NIWR, r.EtcAct-r.Precip+r.Runoff+r.DPerc, 1e-9) {
		fail("niwr = %g", r.NIWR)
	}
	if r.DPerc == 0 && r.NIWR > r.EtcAct+1e-9 {
		fail("niwr = %g > etc_act = %g", r.NIWR, r.EtcAct)
	}
	if s.IrrAuto > 0 && s.IrrSim < s.IrrMin {
		fail("irrigation %g below minimum", s.IrrSim)
	}
}

func TestInvariants(t *testing.T) {
	for _, cp := range []CropParams{cornParams(), alfalfaParams(), bareSoilParams(), openWaterParams()} {
		p := testPair(t, cp, DefaultOptions())
		var days, cuttings, season int
		err := p.Run(context.Background(), func(r *DayResult) error {
			days++
			if r.Cutting {
				cuttings++
			}
			if r.Season {
				season++
			}
			if _, ok := p.Crop.Mode.(OpenWater); !ok {
				checkInvariants(t, p, r)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("crop %d: %v", cp.ClassNumber, err)
		}
		if days != len(p.clim.Days) {
			t.Errorf("crop %d: %d days, want %d", cp.ClassNumber, days, len(p.clim.Days))
		}
		switch cp.ClassNumber {
		case 7:
			if p.Stats.Seasons != 3 {
				t.Errorf("corn: %d seasons, want 3", p.Stats.Seasons)
			}
			if p.Stats.Irrigations == 0 {
				t.Error("corn was never irrigated")
			}
		case 3:
			if cuttings == 0 {
				t.Error("alfalfa was never cut")
			}
			if season == 0 {
				t.Error("alfalfa never grew")
			}
		default:
			if season != 0 {
				t.Errorf("crop %d: %d season days", cp.ClassNumber, season)
			}
		}
	}
}

func TestResume(t *testing.T) {
	collect := func(p *Pair, into *[]*DayResult) {
		t.Helper()
		err := p.Run(context.Background(), func(r *DayResult) error {
			*into = append(*into, r)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	var straight []*DayResult
	collect(testPair(t, cornParams(), DefaultOptions()), &straight)

	o := DefaultOptions()
	o.End = date(2001, 6, 15)
	p := testPair(t, cornParams(), o)
	var resumed []*DayResult
	collect(p, &resumed)

	var buf bytes.Buffer
	if err := p.State.Save(&buf); err != nil {
		t.Fatal(err)
	}
	s, err := LoadState(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p.State, s); diff != "" {
		t.Fatalf("state round trip (-want +got):\n%s", diff)
	}
	p.State = s
	o.End = time.Time{}
	collect(p, &resumed)

	if diff := cmp.Diff(straight, resumed); diff != "" {
		t.Errorf("resumed run differs (-want +got):\n%s", diff)
	}
}

func TestMissingInput(t *testing.T) {
	stn := syntheticStation(date(2000, 1, 1), 60)
	stn.Days[30].Tmax = math.NaN()
	cell := testCell(t, stn)
	p, err := NewPair(cell, mustCrop(t, cornParams()), DefaultOptions(), testLog())
	if err != nil {
		t.Fatal(err)
	}
	var last time.Time
	err = p.Run(context.Background(), func(r *DayResult) error {
		last = r.Date
		return nil
	})
	ide, ok := err.(*InputDataError)
	if !ok {
		t.Fatalf("got %v, want InputDataError", err)
	}
	if ide.Field != "tmax" || !ide.Date.Equal(date(2000, 1, 31)) {
		t.Errorf("error = %v", ide)
	}
	if !last.Equal(date(2000, 1, 30)) || !p.State.LastDate.Equal(last) {
		t.Errorf("last day simulated %v, state at %v", last, p.State.LastDate)
	}
}

func TestStepOrder(t *testing.T) {
	p := testPair(t, cornParams(), DefaultOptions())
	d := date(2000, 6, 1)
	if _, err := p.Step(summerDay(d)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Step(summerDay(d)); err == nil {
		t.Error("repeating a day should fail")
	}
}

func TestCancel(t *testing.T) {
	p := testPair(t, cornParams(), DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err := p.Run(ctx, func(r *DayResult) error {
		n++
		if n == 10 {
			cancel()
		}
		return nil
	})
	if err != context.Canceled {
		t.Fatalf("err = %v", err)
	}
	if n != 10 || p.Stats.Days != 10 {
		t.Errorf("ran %d days (%d in stats) after cancel", n, p.Stats.Days)
	}
}
