package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/xuri/excelize/v2"

	"github.com/AhmedTUD/invoice/internal/model"
)

const (
	summarySheet     = "Summary"
	unspecifiedStore = "Unspecified store"

	headerRow = 5
	firstData = 6
	dataRowPt = 120

	imageBoxW = 180.0
	imageBoxH = 100.0
)

const (
	colorSummary = "2E7D32"
	colorHeader  = "1565C0"
	colorInfo    = "F3E5F5"
	colorNote    = "F8F9FA"
	colorWhite   = "FFFFFF"
)

var storeColumns = []struct {
	title string
	width float64
}{
	{"Employee name", 20},
	{"Employee serial", 15},
	{"Mobile", 15},
	{"Model", 30},
	{"Sales date", 15},
	{"File name", 25},
	{"Invoice image", 25},
}

const imageCol = 7 // G

type storeGroup struct {
	name    string
	code    string
	records []model.JoinedRecord
}

// groupByStore keeps stores in first-seen order.
func groupByStore(recs []model.JoinedRecord) []*storeGroup {
	var (
		out   []*storeGroup
		index = map[string]*storeGroup{}
	)
	for _, r := range recs {
		name := r.StoreName
		if name == "" {
			name = unspecifiedStore
		}
		g, ok := index[name]
		if !ok {
			g = &storeGroup{name: name, code: r.StoreCode}
			if g.code == "" {
				g.code = "N/A"
			}
			index[name] = g
			out = append(out, g)
		}
		g.records = append(g.records, r)
	}
	return out
}

func (g *storeGroup) employees() int {
	seen := map[string]bool{}
	for _, r := range g.records {
		seen[r.Serial] = true
	}
	return len(seen)
}

func (g *storeGroup) invoices() int {
	n := 0
	for _, r := range g.records {
		if r.InvoiceID != "" {
			n++
		}
	}
	return n
}

type styles struct {
	summaryHeader, header, title, info, note, cell int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	fill := func(c string) excelize.Fill { return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{c}} }

	defs := []*excelize.Style{
		{Fill: fill(colorSummary), Font: &excelize.Font{Bold: true, Color: colorWhite, Size: 12}, Alignment: center, Border: border},
		{Fill: fill(colorHeader), Font: &excelize.Font{Bold: true, Color: colorWhite, Size: 12}, Alignment: center, Border: border},
		{Fill: fill(colorHeader), Font: &excelize.Font{Bold: true, Color: colorWhite, Size: 16}, Alignment: center},
		{Fill: fill(colorInfo), Font: &excelize.Font{Bold: true, Color: colorHeader, Size: 12}, Alignment: center},
		{Fill: fill(colorNote), Font: &excelize.Font{Italic: true, Color: "6C757D", Size: 10}, Alignment: center},
		{Alignment: center, Border: border},
	}
	ids := make([]int, len(defs))
	for i, d := range defs {
		id, err := f.NewStyle(d)
		if err != nil {
			return styles{}, err
		}
		ids[i] = id
	}
	return styles{ids[0], ids[1], ids[2], ids[3], ids[4], ids[5]}, nil
}

// Spreadsheet builds the store report: a summary sheet followed by one sheet
// per store. Image problems are written into the affected row and never
// abort the export.
func (e *Exporter) Spreadsheet(ctx context.Context, recs []model.JoinedRecord) (Result, error) {
	if len(recs) == 0 {
		return Result{}, ErrNoRecords
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	st, err := newStyles(f)
	if err != nil {
		return Result{}, fmt.Errorf("styles: %w", err)
	}
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return Result{}, err
	}

	groups := groupByStore(recs)
	if err := writeSummary(f, st, groups); err != nil {
		return Result{}, fmt.Errorf("summary sheet: %w", err)
	}

	res := Result{ContentType: ContentTypeXLSX}
	names := newSheetNamer(summarySheet)
	for _, g := range groups {
		sheet := names.next(g.name)
		if _, err := f.NewSheet(sheet); err != nil {
			return Result{}, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if err := e.writeStore(ctx, f, st, sheet, g, &res); err != nil {
			return Result{}, fmt.Errorf("sheet %q: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Result{}, fmt.Errorf("write workbook: %w", err)
	}
	res.Data = buf.Bytes()
	res.Filename = "invoices_report_" + e.stamp() + ".xlsx"
	e.log.Info(ctx, "spreadsheet exported", "records", len(recs), "stores", len(groups),
		"images_added", res.Added, "images_skipped", res.Skipped)
	return res, nil
}

func writeSummary(f *excelize.File, st styles, groups []*storeGroup) error {
	header := []any{"Store name", "Store code", "Employees", "Invoices"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "D1", st.summaryHeader); err != nil {
		return err
	}
	if err := f.SetRowHeight(summarySheet, 1, 35); err != nil {
		return err
	}
	for i, w := range []float64{25, 15, 15, 15} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(summarySheet, col, col, w); err != nil {
			return err
		}
	}
	for i, g := range groups {
		row := i + 2
		values := []any{g.name, g.code, g.employees(), g.invoices()}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := f.SetCellStyle(summarySheet, cell, last, st.cell); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeStore(ctx context.Context, f *excelize.File, st styles, sheet string, g *storeGroup, res *Result) error {
	lastCol, _ := excelize.ColumnNumberToName(len(storeColumns))
	info := []struct {
		text   string
		style  int
		height float64
	}{
		{g.name, st.title, 35},
		{fmt.Sprintf("Store code: %s | Employees: %d | Invoices: %d", g.code, g.employees(), g.invoices()), st.info, 30},
		{"Invoice images are embedded in the last column", st.note, 25},
	}
	for i, line := range info {
		row := i + 1
		first := fmt.Sprintf("A%d", row)
		last := fmt.Sprintf("%s%d", lastCol, row)
		if err := f.MergeCell(sheet, first, last); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, first, line.text); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, first, last, line.style); err != nil {
			return err
		}
		if err := f.SetRowHeight(sheet, row, line.height); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(sheet, 4, 10); err != nil {
		return err
	}

	header := make([]any, len(storeColumns))
	for i, c := range storeColumns {
		header[i] = c.title
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, c.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow), &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), st.header); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, headerRow, 30); err != nil {
		return err
	}

	for i, r := range g.records {
		row := firstData + i
		values := []any{r.Name, r.Serial, r.Mobile, r.Model, r.SalesDate, r.FileName, ""}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), st.cell); err != nil {
			return err
		}
		if err := f.SetRowHeight(sheet, row, dataRowPt); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(imageCol, row)
		if note := e.embedImage(ctx, f, sheet, cell, r, res); note != "" {
			if err := f.SetCellValue(sheet, cell, note); err != nil {
				return err
			}
		}
	}
	return nil
}

// embedImage places the record's image in cell and returns the text to show
// instead when there is no image to place.
func (e *Exporter) embedImage(ctx context.Context, f *excelize.File, sheet, cell string, r model.JoinedRecord, res *Result) string {
	data, kind, err := e.load(ctx, r)
	switch {
	case err != nil:
		e.log.Warn(ctx, "export: invoice file unreadable", "invoice_id", r.InvoiceID, "error", err)
		res.Skipped++
		return "Image error"
	case kind == kindNone:
		res.Skipped++
		return "No image"
	case kind == kindPDF:
		return "PDF file"
	case kind == kindUnknown:
		res.Skipped++
		return "Image error"
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		e.log.Warn(ctx, "export: image not decodable", "invoice_id", r.InvoiceID, "error", err)
		res.Skipped++
		return "Image error"
	}
	scale := min(imageBoxW/float64(cfg.Width), imageBoxH/float64(cfg.Height))

	err = f.AddPictureFromBytes(sheet, cell, &excelize.Picture{
		Extension: "." + kind.ext(),
		File:      data,
		Format: &excelize.GraphicOptions{
			ScaleX:      scale,
			ScaleY:      scale,
			OffsetX:     4,
			OffsetY:     4,
			Positioning: "oneCell",
			AltText:     r.FileName,
		},
	})
	if err != nil {
		e.log.Warn(ctx, "export: embed image failed", "invoice_id", r.InvoiceID, "error", err)
		res.Skipped++
		return "Image error"
	}
	res.Added++
	return ""
}
