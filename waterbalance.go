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

	"github.com/spatialmodel/cropet/science/snow"
)

// Allowed overshoot of the evaporation layer depletion past TEW [mm].
const surfaceTolerance = 0.2

// Water that may remain above field capacity in the root zone after a
// wetting event [mm].
const fieldCapacityBuffer = 20

// roundTo rounds v to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// reduction returns the evaporation reduction coefficient for an
// evaporation layer depletion, with stage 2 drying between rew and tew2
// and stage 3 drying of cracking soils between tew2 and tew3.
func reduction(depl, rew, tew2, tew3, kr2 float64) float64 {
	switch {
	case depl <= rew:
		return 1
	case depl <= tew2:
		return kr2 + (1-kr2)*(tew2-depl)/(tew2-rew)
	case tew3 > tew2:
		return math.Max(kr2*(tew3-depl)/(tew3-tew2), 0)
	}
	return 0
}

// evaporableWater shrinks the stage 2 and 3 limits and REW under the low
// evaporative demand of winter.
func evaporableWater(ref RefETType, etref30, tew2, tew3, rew float64) (float64, float64, float64) {
	threshold := 5.
	if ref == ETr {
		threshold = 4
	}
	etref30 = math.Max(etref30, 0.1)
	if etref30 >= threshold {
		return tew2, tew3, rew
	}
	r := math.Sqrt(etref30 / threshold)
	tew2 *= r
	tew3 *= r
	return tew2, tew3, math.Min(rew, 0.8*tew2)
}

// waterIn returns the water remaining in the evaporation layer.
func waterIn(tew, depl float64, decimals int) float64 {
	w := tew - depl
	if roundTo(w, decimals) <= 0 {
		w = 0.001
	}
	return math.Min(w, tew)
}

// balance advances the soil water balance by one day. It works on a
// copy of s and commits it only if the day closes; otherwise it returns
// a *skipDay and leaves s as it was.
func (s *CycleState) balance(crop *Crop, o *Options, in *DayInput) error {
	t := *s
	etref := in.ETref

	// Wetted fraction of the last irrigation.
	if t.IrrStdPrev {
		t.FwIrr = t.FwStd
	} else if t.IrrSpecPrev {
		t.FwIrr = t.FwSpec
	}

	// Exposed and wetted fractions.
	t.Few = clip(1-t.Fc, 0.001, t.FwIrr)
	t.Fewp = math.Max(1-t.Fc-t.Few, 0.001)
	watinZe := waterIn(t.TEW, t.DeplZe, o.RoundDecimals)
	watinZep := waterIn(t.TEW, t.DeplZep, o.RoundDecimals)
	t.WtIrr = t.Few * watinZe / (t.Few*watinZe + t.Fewp*watinZep)

	// Morning infiltration into the evaporation layer.
	irr := t.IrrSimPrev
	fw := t.FwIrr
	if fw <= 0.0001 {
		fw = 1
	}
	dpercZe := math.Max(t.PptInf+irr/fw-t.DeplZe, 0)
	dpercZep := math.Max(t.PptInf-t.DeplZep, 0)
	t.DeplZe = clip(t.DeplZe-t.PptInf-irr/fw+dpercZe, 0, t.TEW)
	t.DeplZep = clip(t.DeplZep-t.PptInf+dpercZep, 0, t.TEW)

	tew2, tew3, rew := evaporableWater(o.RefET, in.ETref30, t.TEW2, t.TEW3, t.REW)

	kr := reduction(t.DeplZe, rew, tew2, tew3, t.Kr2)
	krp := reduction(t.DeplZep, rew, tew2, tew3, t.Kr2)
	keIrr := clip(kr*(t.KcMax-t.KcBas)*t.WtIrr, 0, t.Few*t.KcMax)
	kePpt := clip(krp*(t.KcMax-t.KcBas)*(1-t.WtIrr), 0, t.Fewp*t.KcMax)

	// Water stress.
	taw := math.Max(t.TAW(), 0.001)
	raw := t.MAD * taw / 100
	ks := 1.
	if t.DeplRoot > raw && taw > raw {
		ks = clip((taw-t.DeplRoot)/(taw-raw), 0, 1)
	}
	switch crop.InvokeStress {
	case NoStress:
		ks = 1
	case UnrecoverableStress:
		if ks < 0.05 && t.InSeason && t.KcBas > 0.3 {
			t.StressEvent = true
		}
		if t.StressEvent {
			ks = 0
		}
	}
	kcmult := snow.Kcmult(in.SnowDepth, in.DOY)
	if ks > 1 || kcmult > 1 {
		return &skipDay{reason: fmt.Sprintf("ks=%g kcmult=%g exceed 1", ks, kcmult)}
	}
	keIrr *= kcmult
	kePpt *= kcmult

	t.KcAct = kcmult*ks*t.KcBas + keIrr + kePpt
	t.KcPot = t.KcBas + keIrr + kePpt
	eIrr := keIrr * etref
	ePpt := kePpt * etref

	// Transpiration drawn from the evaporation layer.
	ktDenom := math.Max(1-t.DeplRoot/taw, 0.001)
	ktIrr := math.Max(t.Few*(1-t.DeplZe/tew2)/ktDenom, 0)
	ktPpt := math.Max(t.Fewp*(1-t.DeplZep/tew2)/ktDenom, 0)
	depthRatio := math.Pow(o.SurfaceThickness/t.Zr, 0.6)
	transp := kcmult * ks * t.KcBas * etref
	teIrr := transp * math.Min(1, depthRatio*ktIrr)
	tePpt := transp * math.Min(1, depthRatio*ktPpt)

	// Close the evaporation layer, scaling back evaporation that would
	// dry it past TEW.
	var err error
	if t.DeplZe, err = closeSurface(t.DeplZe, t.TEW, t.Few, &eIrr, &teIrr); err != nil {
		return err
	}
	if t.DeplZep, err = closeSurface(t.DeplZep, t.TEW, t.Fewp, &ePpt, &tePpt); err != nil {
		return err
	}

	et := math.Max(etref, 0.01)
	keIrr = clip(eIrr/et, 0, 1.5)
	kePpt = clip(ePpt/et, 0, 1.5)
	t.KcAct = kcmult*ks*t.KcBas + keIrr + kePpt
	t.KcPot = t.KcBas + keIrr + kePpt
	t.EtcAct = t.KcAct * etref
	t.EtcPot = t.KcPot * etref
	t.EtcBas = t.KcBas * etref

	t.CumEvapPrev = math.Max(t.CumEvapPrev+eIrr-(t.PptInf-dpercZep), 0)

	// Root zone and irrigation.
	observed := in.IrrReal + in.IrrManual + in.IrrSpecial
	t.DeplRoot += t.EtcAct - t.PptInf - observed
	t.IrrSim, t.IrrAuto = 0, 0
	if t.IrrFlag && t.InSeason && t.DeplRoot > raw && t.KcBas > 0.22 &&
		t.CycleDays >= crop.DaysAfterPlantingIrrigation {
		t.IrrSim = math.Max(t.DeplRoot, t.IrrMin)
		t.DeplRoot -= t.IrrSim
		t.IrrAuto = t.IrrSim
	}
	t.IrrSim += observed
	if t.IrrSim > 0 {
		t.CumEvap = t.CumEvapPrev
		t.CumEvapPrev = 0
	}

	// Deep percolation out of the root zone.
	if t.IrrSim+t.IrrSimPrev+t.PptInf+t.PptInfPrev <= 0.0001 || t.Zr < 0.2 {
		t.DPerc = -math.Min(t.DeplRoot, 0)
	} else if t.DeplRoot < -fieldCapacityBuffer {
		t.DPerc = -t.DeplRoot - fieldCapacityBuffer
	} else {
		t.DPerc = 0
	}
	t.DeplRoot += t.DPerc

	// Crops that ignore stress keep their full ET even past TAW.
	if crop.InvokeStress != NoStress && t.DeplRoot > taw {
		t.EtcAct = math.Max(t.EtcAct-(t.DeplRoot-taw), 0)
		if etref > 0.1 {
			t.KcAct = t.EtcAct / etref
		}
		t.DeplRoot = taw
	}

	// Layer between the root zone and the maximum root depth.
	gross := t.DPerc + 0.1*t.IrrSim
	below := t.ZrMax - t.Zr
	daw3 := math.Max(t.AW3*below, 0) + gross
	taw3 := math.Max(t.AW*below, 0)
	if daw3 > taw3 {
		t.DPerc = daw3 - taw3
		daw3 = taw3
	} else {
		t.DPerc = 0
	}
	if below > 0 {
		t.AW3 = clip(daw3/below, 0, t.AW)
	} else {
		t.AW3 = 0
	}

	if t.IrrSim > 0 {
		t.NIWR = t.EtcAct - (in.Precip - t.Sro)
	} else {
		t.NIWR = t.EtcAct - (in.Precip - t.Sro - t.DPerc)
	}

	t.IrrStdPrev = t.IrrAuto > 0 || in.IrrReal > 0
	t.IrrSpecPrev = in.IrrManual > 0 || in.IrrSpecial > 0
	*s = t
	return nil
}

// closeSurface adds the day's evaporation e and transpiration te to the
// depletion of an evaporation layer sub-fraction covering frac of the
// ground. e and te are scaled back so that the depletion does not exceed
// tew.
func closeSurface(depl, tew, frac float64, e, te *float64) (float64, error) {
	next := depl + *e/frac + *te
	if next <= tew {
		return next, nil
	}
	pot := math.Max(next-depl, 1e-4)
	f := clip(1-(next-tew)/pot, 0, 1)
	*e *= f
	*te *= f
	next = depl + *e/frac + *te
	if next > tew+surfaceTolerance {
		return 0, &skipDay{reason: fmt.Sprintf("evaporation layer depletion %g exceeds TEW %g", next, tew)}
	}
	return math.Min(next, tew), nil
}
