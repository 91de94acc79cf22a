package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/export"
	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/records"
)

const exportTimeout = 2 * time.Minute

// Headers carrying the export counters.
const (
	HeaderImagesAdded   = "X-Export-Images-Added"
	HeaderImagesSkipped = "X-Export-Images-Skipped"
)

// ExportHandler renders the filtered records as downloads. The filter comes
// from the same query parameters as GET /api/submissions.
type ExportHandler struct {
	Records  *records.Service
	Exporter *export.Exporter
}

func NewExportHandler(r *records.Service, e *export.Exporter) *ExportHandler {
	return &ExportHandler{Records: r, Exporter: e}
}

func (h *ExportHandler) Spreadsheet(c echo.Context) error {
	return h.serve(c, h.Exporter.Spreadsheet)
}

func (h *ExportHandler) Archive(c echo.Context) error {
	return h.serve(c, h.Exporter.Archive)
}

func (h *ExportHandler) serve(c echo.Context, build func(context.Context, []model.JoinedRecord) (export.Result, error)) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), exportTimeout)
	defer cancel()

	recs, err := h.Records.List(ctx, filterFromQuery(c), false)
	if err != nil {
		return fail(c, err)
	}
	res, err := build(ctx, recs)
	if err != nil {
		return fail(c, err)
	}

	hdr := c.Response().Header()
	hdr.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
	hdr.Set(HeaderImagesAdded, strconv.Itoa(res.Added))
	hdr.Set(HeaderImagesSkipped, strconv.Itoa(res.Skipped))
	hdr.Set(echo.HeaderAccessControlExposeHeaders, echo.HeaderContentDisposition+", "+HeaderImagesAdded+", "+HeaderImagesSkipped)
	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}
