// Package render writes report datasets as PDF, Excel or CSV.
package render

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/smallbiznis/shaadmin/internal/report/domain"
)

type renderer struct{}

func New() domain.Renderer {
	return renderer{}
}

func (renderer) Render(w io.Writer, format domain.Format, ds domain.Dataset) error {
	switch format {
	case domain.FormatPDF:
		return writePDF(w, ds)
	case domain.FormatExcel:
		return writeExcel(w, ds)
	case domain.FormatCSV:
		return writeCSV(w, ds)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

func writeCSV(w io.Writer, ds domain.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(ds.Rows); err != nil {
		return err
	}
	return cw.Error()
}
