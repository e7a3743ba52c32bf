package render

import (
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/shaadmin/internal/report/domain"
)

const gridColumns = 12

func writePDF(w io.Writer, ds domain.Dataset) error {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	m.AddRow(12,
		text.NewCol(12, ds.Title, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(8, text.NewCol(12, ds.Period, props.Text{Size: 9}))

	widths := columnWidths(len(ds.Columns))
	m.AddRow(8, cells(ds.Columns, widths, props.Text{Size: 8, Style: fontstyle.Bold})...)
	m.AddRow(2, line.NewCol(12))
	for _, row := range ds.Rows {
		m.AddRow(7, cells(row, widths, props.Text{Size: 8})...)
	}
	if len(ds.Rows) == 0 {
		m.AddRow(8, text.NewCol(12, "No records in this period.", props.Text{Size: 9, Style: fontstyle.Italic}))
	}

	doc, err := m.Generate()
	if err != nil {
		return err
	}
	_, err = w.Write(doc.GetBytes())
	return err
}

func cells(values []string, widths []int, style props.Text) []core.Col {
	out := make([]core.Col, 0, len(widths))
	for i, width := range widths {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		s := style
		if i > 0 {
			s.Align = align.Right
		}
		out = append(out, col.New(width).Add(text.New(value, s)))
	}
	return out
}

// columnWidths spreads the twelve grid units across n columns, giving the
// leftover units to the leading label columns.
func columnWidths(n int) []int {
	if n <= 0 {
		return nil
	}
	if n > gridColumns {
		n = gridColumns
	}
	widths := make([]int, n)
	base, extra := gridColumns/n, gridColumns%n
	for i := range widths {
		widths[i] = base
		if i < extra {
			widths[i]++
		}
	}
	return widths
}
