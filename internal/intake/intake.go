// Package intake validates and stores employee invoice submissions.
package intake

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AhmedTUD/invoice/internal/dbx"
	"github.com/AhmedTUD/invoice/internal/logging"
	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/queue"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/service"
	"github.com/AhmedTUD/invoice/internal/storage"
)

// Request is a decoded intake form. Files pairs uploads with drafts by the
// draft's correlation id; Positional holds uploads sent without one and is
// consulted by index only for drafts that have no id-keyed file.
type Request struct {
	Basic      model.BasicData
	Invoices   []model.InvoiceDraft
	Files      map[string]Upload
	Positional []Upload
}

// Result summarises a stored submission.
type Result struct {
	SubmissionID string `json:"submissionId"`
	EmployeeID   string `json:"employeeId"`
	Invoices     int    `json:"invoices"`
	Files        int    `json:"files"`
}

type Options struct {
	MaxUploadBytes int64
	Now            func() time.Time
	Logger         logging.Logger
	Audit          service.AuditPublisher
}

type Service struct {
	db          *sql.DB
	employees   *repository.EmployeeRepo
	submissions *repository.SubmissionRepo
	store       storage.Store

	maxBytes int64
	now      func() time.Time
	log      logging.Logger
	audit    service.AuditPublisher
}

func NewService(db *sql.DB, employees *repository.EmployeeRepo, submissions *repository.SubmissionRepo, store storage.Store, opts Options) *Service {
	s := &Service{
		db:          db,
		employees:   employees,
		submissions: submissions,
		store:       store,
		maxBytes:    opts.MaxUploadBytes,
		now:         opts.Now,
		log:         opts.Logger,
		audit:       opts.Audit,
	}
	if s.maxBytes <= 0 {
		s.maxBytes = 10 << 20
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.audit == nil {
		s.audit = service.NopPublisher{}
	}
	return s
}

type preparedInvoice struct {
	draft    model.InvoiceDraft
	fileName string
	data     []byte
}

// Submit validates req, writes its files to storage and records the employee,
// the submission and its invoices in one transaction. Files already written
// are removed when anything after them fails.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	basic, err := validateBasic(req.Basic)
	if err != nil {
		return Result{}, err
	}
	prepared, err := s.prepare(req)
	if err != nil {
		return Result{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	submissionID := uuid.NewString()

	var stored []string
	cleanup := func() {
		if _, err := storage.DeleteAll(context.WithoutCancel(ctx), s.store, stored); err != nil {
			s.log.Warn(ctx, "intake: cleanup of stored files failed", "error", err)
		}
	}

	invoices := make([]model.Invoice, 0, len(prepared))
	for _, p := range prepared {
		inv := model.Invoice{
			ID:           uuid.NewString(),
			SubmissionID: submissionID,
			Model:        p.draft.Model,
			SalesDate:    p.draft.SalesDate,
			CreatedAt:    now,
		}
		if p.data != nil {
			name := uuid.NewString() + "_" + p.fileName
			if _, err := s.store.Save(ctx, name, bytes.NewReader(p.data)); err != nil {
				cleanup()
				return Result{}, fmt.Errorf("store file %q: %w", p.fileName, err)
			}
			stored = append(stored, name)
			inv.FileName = p.fileName
			inv.FilePath = model.UploadPrefix + name
		}
		invoices = append(invoices, inv)
	}

	var employeeID string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := s.employees.Upsert(ctx, tx, basic, now)
		if err != nil {
			return fmt.Errorf("upsert employee: %w", err)
		}
		employeeID = id

		sub := model.Submission{
			ID:         submissionID,
			EmployeeID: id,
			Email:      basic.Email,
			Name:       basic.Name,
			Mobile:     basic.Mobile,
			Serial:     basic.Serial,
			StoreName:  basic.StoreName,
			StoreCode:  basic.StoreCode,
			CreatedAt:  now,
		}
		if err := s.submissions.Insert(ctx, tx, sub); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		for _, inv := range invoices {
			if err := s.submissions.InsertInvoice(ctx, tx, inv); err != nil {
				return fmt.Errorf("insert invoice: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		cleanup()
		return Result{}, err
	}

	res := Result{SubmissionID: submissionID, EmployeeID: employeeID, Invoices: len(invoices), Files: len(stored)}
	s.log.Info(ctx, "submission stored", "submission_id", submissionID, "email", basic.Email, "invoices", res.Invoices, "files", res.Files)
	_ = s.audit.Publish(ctx, queue.AuditEvent{
		Type:         queue.EventSubmissionCreated,
		At:           model.FormatTime(now),
		SubmissionID: submissionID,
		Email:        basic.Email,
		StoreCode:    basic.StoreCode,
		Invoices:     int64(res.Invoices),
		Files:        res.Files,
	})
	return res, nil
}

func validateBasic(b model.BasicData) (model.BasicData, error) {
	b = model.BasicData{
		Email:     strings.TrimSpace(b.Email),
		Name:      strings.TrimSpace(b.Name),
		Mobile:    strings.TrimSpace(b.Mobile),
		Serial:    strings.TrimSpace(b.Serial),
		StoreName: strings.TrimSpace(b.StoreName),
		StoreCode: strings.TrimSpace(b.StoreCode),
	}
	for _, f := range []struct{ name, value string }{
		{"email", b.Email},
		{"name", b.Name},
		{"mobile", b.Mobile},
		{"serial", b.Serial},
		{"storeName", b.StoreName},
		{"storeCode", b.StoreCode},
	} {
		if f.value == "" {
			return b, invalid("basicData."+f.name, "required")
		}
	}
	if !strings.Contains(b.Email, "@") {
		return b, invalid("basicData.email", "not an email address")
	}
	return b, nil
}

// prepare validates every draft and reads the file paired with it. A draft
// without a file is stored with empty file fields. Files keyed by draft id
// win; positional files go, in order, to the drafts left without one. An
// upload that pairs with no draft is rejected.
func (s *Service) prepare(req Request) ([]preparedInvoice, error) {
	if len(req.Invoices) == 0 {
		return nil, invalid("invoicesData", "at least one invoice is required")
	}

	seen := make(map[string]bool, len(req.Invoices))
	out := make([]preparedInvoice, 0, len(req.Invoices))
	next := 0
	for i, d := range req.Invoices {
		field := fmt.Sprintf("invoicesData[%d]", i)
		d.ID = strings.TrimSpace(d.ID)
		d.Model = strings.TrimSpace(d.Model)
		d.SalesDate = strings.TrimSpace(d.SalesDate)

		if d.ID != "" {
			if seen[d.ID] {
				return nil, invalid(field+".id", "duplicate id %q", d.ID)
			}
			seen[d.ID] = true
		}
		if d.Model == "" {
			return nil, invalid(field+".model", "required")
		}
		if _, err := time.Parse(model.DateLayout, d.SalesDate); err != nil {
			return nil, invalid(field+".salesDate", "expected YYYY-MM-DD, got %q", d.SalesDate)
		}

		p := preparedInvoice{draft: d}
		u, ok := req.Files[d.ID]
		if d.ID == "" || !ok {
			if ok = next < len(req.Positional); ok {
				u = req.Positional[next]
				next++
			}
		}
		if ok {
			data, err := readChecked(u, field+".file", s.maxBytes)
			if err != nil {
				return nil, err
			}
			p.fileName = cleanFilename(u.Filename)
			p.data = data
		}
		out = append(out, p)
	}

	for id := range req.Files {
		if id == "" || !seen[id] {
			return nil, invalid("invoiceFile_"+id, "no invoice with id %q", id)
		}
	}
	if next < len(req.Positional) {
		return nil, invalid(fmt.Sprintf("invoiceFiles[%d]", next), "no invoice left for this file")
	}
	return out, nil
}
