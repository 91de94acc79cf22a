// Package export renders joined invoice records as a spreadsheet report or
// as a zip archive of the invoice files. Artifacts are built in memory and
// returned whole.
package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/AhmedTUD/invoice/internal/logging"
	"github.com/AhmedTUD/invoice/internal/model"
)

// ErrNoRecords is returned when there is nothing to export.
var ErrNoRecords = errors.New("no records to export")

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeZIP  = "application/zip"
)

// Files reads stored invoice files by name. storage.Store satisfies it.
type Files interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Result is a finished artifact. Added counts embedded images (spreadsheet)
// or archived files (archive); Skipped counts records whose file was missing
// or unusable.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
	Added       int
	Skipped     int
}

type Exporter struct {
	files Files
	now   func() time.Time
	log   logging.Logger
}

func New(files Files, log logging.Logger) *Exporter {
	if log == nil {
		log = logging.Discard()
	}
	return &Exporter{files: files, now: time.Now, log: log}
}

func (e *Exporter) stamp() string {
	return e.now().UTC().Format("2006-01-02_15-04")
}

type fileKind int

const (
	kindNone fileKind = iota
	kindJPEG
	kindPNG
	kindPDF
	kindUnknown
)

func (k fileKind) ext() string {
	switch k {
	case kindPNG:
		return "png"
	case kindPDF:
		return "pdf"
	default:
		return "jpg"
	}
}

// load returns the record's file and its sniffed kind. A record without a
// file yields kindNone and a nil error.
func (e *Exporter) load(ctx context.Context, rec model.JoinedRecord) ([]byte, fileKind, error) {
	name := rec.StoredName()
	if name == "" {
		return nil, kindNone, nil
	}
	rc, err := e.files.Open(ctx, name)
	if err != nil {
		return nil, kindNone, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, kindNone, err
	}
	data := buf.Bytes()

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("image/jpeg"):
		return data, kindJPEG, nil
	case mt.Is("image/png"):
		return data, kindPNG, nil
	case mt.Is("application/pdf"):
		return data, kindPDF, nil
	default:
		return data, kindUnknown, nil
	}
}
