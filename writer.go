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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tealeg/xlsx"
)

// ResultWriter writes the daily results of a pair.
type ResultWriter interface {
	Write(r *DayResult) error
	Close() error
}

// formatValue formats an output value: ISO dates and floats with six
// decimals.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(dateFormat)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', 6, 64)
	}
	return fmt.Sprint(v)
}

// CSVWriter writes daily results as comma-separated values.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
	o      *Outputter
}

// NewCSVWriter returns a writer of the columns of o to w. If header is
// true the column names are written first. If w is an io.Closer it is
// closed by Close.
func NewCSVWriter(w io.Writer, o *Outputter, header bool) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w), o: o}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	if header {
		if err := cw.w.Write(o.Columns()); err != nil {
			return nil, fmt.Errorf("cropet: writing csv header: %v", err)
		}
	}
	return cw, nil
}

// Write writes one day.
func (cw *CSVWriter) Write(r *DayResult) error {
	row, err := cw.o.Row(r)
	if err != nil {
		return err
	}
	rec := make([]string, len(row))
	for i, v := range row {
		rec[i] = formatValue(v)
	}
	return cw.w.Write(rec)
}

// Close flushes the output.
func (cw *CSVWriter) Close() error {
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return fmt.Errorf("cropet: writing csv: %v", err)
	}
	if cw.closer != nil {
		return cw.closer.Close()
	}
	return nil
}

// XLSXWriter writes daily results to a workbook, which is saved when
// the writer is closed.
type XLSXWriter struct {
	path  string
	file  *xlsx.File
	sheet *xlsx.Sheet
	o     *Outputter
}

// NewXLSXWriter returns a writer of the columns of o to a workbook at
// path with one sheet named sheet.
func NewXLSXWriter(path, sheet string, o *Outputter) (*XLSXWriter, error) {
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("cropet: creating workbook sheet: %v", err)
	}
	row := sh.AddRow()
	for _, c := range o.Columns() {
		row.AddCell().SetString(c)
	}
	return &XLSXWriter{path: path, file: f, sheet: sh, o: o}, nil
}

// Write adds one day to the sheet.
func (xw *XLSXWriter) Write(r *DayResult) error {
	vals, err := xw.o.Row(r)
	if err != nil {
		return err
	}
	row := xw.sheet.AddRow()
	for _, v := range vals {
		cell := row.AddCell()
		switch t := v.(type) {
		case time.Time:
			cell.SetString(t.Format(dateFormat))
		case int:
			cell.SetInt(t)
		case float64:
			cell.SetFloat(t)
		default:
			cell.SetString(fmt.Sprint(v))
		}
	}
	return nil
}

// Close saves the workbook.
func (xw *XLSXWriter) Close() error {
	if err := xw.file.Save(xw.path); err != nil {
		return fmt.Errorf("cropet: saving workbook: %v", err)
	}
	return nil
}
