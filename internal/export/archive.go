package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/xuri/excelize/v2"

	"github.com/AhmedTUD/invoice/internal/model"
)

const (
	archiveSummaryName = "invoice_summary.xlsx"
	archiveReadmeName  = "README.txt"
	noFile             = "No file"
	deflateLevel       = 6
)

type archiveEntry struct {
	rec  model.JoinedRecord
	path string // in-archive path, empty when the record has no usable file
}

// Archive builds a zip with every invoice file under
// Store/Employee/Model/<Model>_<Date>_<n>.<ext>, a summary workbook mapping
// records to archive paths and a README. n counts per store, employee and
// model, in record order.
func (e *Exporter) Archive(ctx context.Context, recs []model.JoinedRecord) (Result, error) {
	if len(recs) == 0 {
		return Result{}, ErrNoRecords
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, deflateLevel)
	})

	res := Result{ContentType: ContentTypeZIP}
	now := e.now()
	counters := map[string]int{}
	entries := make([]archiveEntry, 0, len(recs))

	for _, r := range recs {
		store, emp, mdl := safeStore(r.StoreName), safeEmployee(r.Name), safeModel(r.Model)
		key := store + "/" + emp + "/" + mdl
		counters[key]++
		entry := archiveEntry{rec: r}

		data, kind, err := e.load(ctx, r)
		switch {
		case err != nil:
			e.log.Warn(ctx, "export: invoice file unreadable", "invoice_id", r.InvoiceID, "error", err)
			res.Skipped++
		case kind == kindNone || kind == kindUnknown:
			res.Skipped++
		default:
			name := fmt.Sprintf("%s_%s_%d.%s", mdl, safeDate(r.SalesDate), counters[key], kind.ext())
			entry.path = path.Join(key, name)
			if err := writeZipFile(zw, entry.path, data, now); err != nil {
				return Result{}, fmt.Errorf("archive %q: %w", entry.path, err)
			}
			res.Added++
		}
		entries = append(entries, entry)
	}

	summary, err := archiveSummary(entries)
	if err != nil {
		return Result{}, fmt.Errorf("archive summary: %w", err)
	}
	if err := writeZipFile(zw, archiveSummaryName, summary, now); err != nil {
		return Result{}, err
	}
	readme := archiveReadme(len(recs), res.Added, res.Skipped, now.UTC().Format("2006-01-02 15:04 MST"))
	if err := writeZipFile(zw, archiveReadmeName, []byte(readme), now); err != nil {
		return Result{}, err
	}
	if err := zw.Close(); err != nil {
		return Result{}, fmt.Errorf("close archive: %w", err)
	}

	res.Data = buf.Bytes()
	res.Filename = "invoices_archive_" + e.stamp() + ".zip"
	e.log.Info(ctx, "archive exported", "records", len(recs), "files_added", res.Added, "files_skipped", res.Skipped)
	return res, nil
}

func writeZipFile(zw *zip.Writer, name string, data []byte, mod time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func archiveSummary(entries []archiveEntry) ([]byte, error) {
	const sheet = "Invoice summary"
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	header := []any{"Store", "Employee", "Serial", "Mobile", "Model", "Sales date", "Path in archive"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", st.header); err != nil {
		return nil, err
	}
	if err := f.SetRowHeight(sheet, 1, 30); err != nil {
		return nil, err
	}
	for i, w := range []float64{25, 25, 15, 15, 30, 15, 50} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, err
		}
	}

	for i, en := range entries {
		p := en.path
		if p == "" {
			p = noFile
		}
		r := en.rec
		row := []any{r.StoreName, r.Name, r.Serial, r.Mobile, r.Model, r.SalesDate, p}
		first := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, first, &row); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, first, fmt.Sprintf("G%d", i+2), st.cell); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func archiveReadme(total, added, skipped int, created string) string {
	var b strings.Builder
	b.WriteString("Invoice archive\n===============\n\n")
	fmt.Fprintf(&b, "Invoices:           %d\n", total)
	fmt.Fprintf(&b, "Files included:     %d\n", added)
	fmt.Fprintf(&b, "Invoices w/o file:  %d\n\n", skipped)
	b.WriteString("Layout\n------\n")
	b.WriteString("<store>/\n")
	b.WriteString("  <employee>/\n")
	b.WriteString("    <model>/\n")
	b.WriteString("      <model>_<sales date>_<n>.<ext>\n\n")
	b.WriteString("<n> numbers the invoices of one employee for one model at one store.\n")
	fmt.Fprintf(&b, "%s lists every invoice with its path in this archive.\n\n", archiveSummaryName)
	fmt.Fprintf(&b, "Created: %s\n", created)
	return b.String()
}
