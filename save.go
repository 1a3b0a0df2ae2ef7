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
	"os"
	"path/filepath"
)

func statePath(dir string, p *Pair) string {
	return filepath.Join(dir, p.Name()+".gob")
}

// SaveStates returns a function that saves the state of every pair to a
// gob file in dir (format description at https://golang.org/pkg/encoding/gob/).
func SaveStates(dir string) SimulationManipulator {
	return func(s *Simulation) error {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("cropet: creating checkpoint directory: %v", err)
		}
		for _, p := range s.Pairs {
			if p.State == nil {
				continue
			}
			f, err := os.Create(statePath(dir, p))
			if err != nil {
				return fmt.Errorf("cropet: saving state of %s: %v", p.Name(), err)
			}
			if err := p.State.Save(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("cropet: saving state of %s: %v", p.Name(), err)
			}
		}
		return nil
	}
}

// LoadStates returns a function that restores the pair states saved by
// SaveStates. Pairs without a saved state start from the beginning.
func LoadStates(dir string) SimulationManipulator {
	return func(s *Simulation) error {
		for _, p := range s.Pairs {
			if p.Err != nil {
				continue
			}
			f, err := os.Open(statePath(dir, p))
			if os.IsNotExist(err) {
				continue
			} else if err != nil {
				return fmt.Errorf("cropet: loading state of %s: %v", p.Name(), err)
			}
			state, err := LoadState(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%v (%s)", err, p.Name())
			}
			p.State = state
			p.Log.WithField("date", state.LastDate.Format(dateFormat)).Info("resuming from saved state")
		}
		return nil
	}
}
