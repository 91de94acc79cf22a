package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/filter"
	"github.com/AhmedTUD/invoice/internal/intake"
	"github.com/AhmedTUD/invoice/internal/records"
)

// Multipart field names of the intake form.
const (
	fieldBasicData    = "basicData"
	fieldInvoicesData = "invoicesData"
	fieldInvoiceFile  = "invoiceFile_"
	fieldInvoiceFiles = "invoiceFiles"
)

const (
	uploadTimeout     = 60 * time.Second
	multipartMemLimit = 32 << 20
)

// SubmissionHandler serves intake and the admin record views.
type SubmissionHandler struct {
	Intake  *intake.Service
	Records *records.Service
}

func NewSubmissionHandler(in *intake.Service, rec *records.Service) *SubmissionHandler {
	return &SubmissionHandler{Intake: in, Records: rec}
}

// Create accepts the multipart intake form. Files are matched to drafts by
// the invoiceFile_<id> part name; parts named invoiceFiles pair by position.
func (h *SubmissionHandler) Create(c echo.Context) error {
	if err := c.Request().ParseMultipartForm(multipartMemLimit); err != nil {
		return failMsg(c, http.StatusBadRequest, "multipart form expected")
	}
	form := c.Request().MultipartForm

	var req intake.Request
	if err := json.Unmarshal([]byte(c.FormValue(fieldBasicData)), &req.Basic); err != nil {
		return failMsg(c, http.StatusBadRequest, "basicData: invalid JSON")
	}
	if err := json.Unmarshal([]byte(c.FormValue(fieldInvoicesData)), &req.Invoices); err != nil {
		return failMsg(c, http.StatusBadRequest, "invoicesData: invalid JSON")
	}

	req.Files = map[string]intake.Upload{}
	for name, headers := range form.File {
		switch {
		case name == fieldInvoiceFiles:
			for _, fh := range headers {
				req.Positional = append(req.Positional, intake.FromHeader(fh))
			}
		case strings.HasPrefix(name, fieldInvoiceFile) && len(headers) > 0:
			req.Files[strings.TrimPrefix(name, fieldInvoiceFile)] = intake.FromHeader(headers[0])
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), uploadTimeout)
	defer cancel()

	res, err := h.Intake.Submit(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{
		"message":      "submission saved",
		"submissionId": res.SubmissionID,
		"data":         res,
	})
}

// filterFromQuery reads the filter set from name, serial, store, model,
// dateFrom and dateTo query parameters.
func filterFromQuery(c echo.Context) filter.Set {
	return filter.Set{
		Name:     c.QueryParam("name"),
		Serial:   c.QueryParam("serial"),
		Store:    c.QueryParam("store"),
		Model:    c.QueryParam("model"),
		DateFrom: c.QueryParam("dateFrom"),
		DateTo:   c.QueryParam("dateTo"),
	}.Normalize()
}

// List returns joined records, optionally filtered. Files are inlined as
// data URLs unless withFiles=false.
func (h *SubmissionHandler) List(c echo.Context) error {
	withFiles := c.QueryParam("withFiles") != "false"

	ctx, cancel := context.WithTimeout(c.Request().Context(), uploadTimeout)
	defer cancel()

	recs, err := h.Records.List(ctx, filterFromQuery(c), withFiles)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"data": recs, "count": len(recs)})
}

type purgeReq struct {
	Filters    filter.Set `json:"filters"`
	ConfirmAll bool       `json:"confirmAll"`
}

func purgeResponse(c echo.Context, out records.Outcome, emptyMsg string) error {
	msg := "records deleted"
	if !out.Matched {
		msg = emptyMsg
	}
	return ok(c, echo.Map{
		"message": msg,
		"deleted": echo.Map{
			"invoices":    out.Invoices,
			"submissions": out.Submissions,
			"employees":   out.Employees,
			"files":       out.Files,
		},
		"scope": out.Scope,
	})
}

// PurgeAll deletes every record and stored file.
func (h *SubmissionHandler) PurgeAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), uploadTimeout)
	defer cancel()

	out, err := h.Records.PurgeAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	return purgeResponse(c, out, "nothing to delete")
}

// PurgeFiltered deletes the records matching the body filters.
func (h *SubmissionHandler) PurgeFiltered(c echo.Context) error {
	var req purgeReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), uploadTimeout)
	defer cancel()

	out, err := h.Records.PurgeFiltered(ctx, req.Filters, req.ConfirmAll)
	if err != nil {
		return fail(c, err)
	}
	return purgeResponse(c, out, "nothing matched the filters")
}

// PurgeInvoices deletes the invoices matching the body filters, or all
// invoices when none are given.
func (h *SubmissionHandler) PurgeInvoices(c echo.Context) error {
	var req purgeReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), uploadTimeout)
	defer cancel()

	out, err := h.Records.PurgeInvoices(ctx, req.Filters)
	if err != nil {
		return fail(c, err)
	}
	return purgeResponse(c, out, "nothing to delete")
}

// DeleteInvoice removes one invoice and its file.
func (h *SubmissionHandler) DeleteInvoice(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	inv, out, err := h.Records.DeleteInvoice(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{
		"message": "invoice " + inv.Model + " deleted",
		"deleted": out.PurgeResult,
	})
}
