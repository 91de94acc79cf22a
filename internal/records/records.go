// Package records serves the admin view of stored submissions: listing with
// filters and the three purge scopes.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AhmedTUD/invoice/internal/dbx"
	"github.com/AhmedTUD/invoice/internal/export"
	"github.com/AhmedTUD/invoice/internal/filter"
	"github.com/AhmedTUD/invoice/internal/logging"
	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/queue"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/service"
	"github.com/AhmedTUD/invoice/internal/storage"
	"github.com/AhmedTUD/invoice/internal/utils"
)

// ErrEmptyFilters rejects a filtered purge without any filter unless the
// caller explicitly confirms deleting everything.
var ErrEmptyFilters = errors.New("at least one filter is required; set confirmAll to delete everything")

// Purge scopes reported in outcomes and audit events.
const (
	ScopeAll      = "all"
	ScopeFiltered = "filtered"
	ScopeInvoices = "invoices"
	ScopeInvoice  = "invoice"
)

// Outcome is the result of a purge. Matched is false when the filters
// selected nothing and no row was touched.
type Outcome struct {
	model.PurgeResult
	Scope   string `json:"scope"`
	Matched bool   `json:"matched"`
}

type Options struct {
	Links  *utils.FileLinkSigner
	Audit  service.AuditPublisher
	Logger logging.Logger
	Now    func() time.Time
}

type Service struct {
	db          *sql.DB
	submissions *repository.SubmissionRepo
	store       storage.Store
	links       *utils.FileLinkSigner
	audit       service.AuditPublisher
	log         logging.Logger
	now         func() time.Time
}

func NewService(db *sql.DB, submissions *repository.SubmissionRepo, store storage.Store, opts Options) *Service {
	s := &Service{
		db:          db,
		submissions: submissions,
		store:       store,
		links:       opts.Links,
		audit:       opts.Audit,
		log:         opts.Logger,
		now:         opts.Now,
	}
	if s.audit == nil {
		s.audit = service.NopPublisher{}
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// List returns the joined records selected by f, newest submission first.
// With withFiles set, each record carries its file as a data URL; files
// that cannot be read are logged and left out. Records with a file always
// get a signed download link when a signer is configured.
func (s *Service) List(ctx context.Context, f filter.Set, withFiles bool) ([]model.JoinedRecord, error) {
	all, err := s.submissions.ListJoined(ctx, filter.Set{})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	recs := f.Apply(all)

	for i := range recs {
		name := recs[i].StoredName()
		if name == "" {
			continue
		}
		if s.links != nil {
			if u, err := s.links.URL(name); err == nil {
				recs[i].FileURL = u
			}
		}
		if !withFiles {
			continue
		}
		data, err := storage.ReadAll(ctx, s.store, name)
		if err != nil {
			s.log.Warn(ctx, "records: file unreadable", "file", name, "error", err)
			continue
		}
		recs[i].FileDataURL = export.EncodeDataURL(export.MimeByName(name), data)
	}
	return recs, nil
}

// PurgeAll deletes every invoice, submission and employee and then every
// stored file. Rows go in one transaction; files are removed after commit.
func (s *Service) PurgeAll(ctx context.Context) (Outcome, error) {
	var res model.PurgeResult
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res, err = s.submissions.DeleteAll(ctx, tx)
		return err
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("purge all: %w", err)
	}

	n, err := s.store.Purge(ctx)
	if err != nil {
		s.log.Warn(ctx, "records: purge files failed", "error", err)
	}
	res.Files = n

	out := Outcome{PurgeResult: res, Scope: ScopeAll, Matched: res.Invoices > 0 || res.Submissions > 0 || res.Employees > 0}
	s.finish(ctx, out)
	return out, nil
}

// PurgeFiltered deletes the invoices matching f together with the matched
// submissions left without invoices. Employees are kept. Empty filters are
// rejected unless confirmAll is set, which turns the call into PurgeAll.
func (s *Service) PurgeFiltered(ctx context.Context, f filter.Set, confirmAll bool) (Outcome, error) {
	f = f.Normalize()
	if f.IsEmpty() {
		if !confirmAll {
			return Outcome{}, ErrEmptyFilters
		}
		return s.PurgeAll(ctx)
	}
	return s.purgeScoped(ctx, f, ScopeFiltered, true)
}

// PurgeInvoices deletes the invoices matching f, or every invoice when f is
// empty. Submissions and employees are kept.
func (s *Service) PurgeInvoices(ctx context.Context, f filter.Set) (Outcome, error) {
	return s.purgeScoped(ctx, f.Normalize(), ScopeInvoices, false)
}

func (s *Service) purgeScoped(ctx context.Context, f filter.Set, scope string, dropSubmissions bool) (Outcome, error) {
	out := Outcome{Scope: scope}
	var paths []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sc, err := s.submissions.FindScope(ctx, tx, f)
		if err != nil {
			return err
		}
		if len(sc.InvoiceIDs) == 0 && (!dropSubmissions || len(sc.SubmissionIDs) == 0) {
			return nil
		}
		out.Matched = true
		paths = sc.FilePaths

		if out.Invoices, err = s.submissions.DeleteInvoices(ctx, tx, sc.InvoiceIDs); err != nil {
			return err
		}
		if dropSubmissions {
			if out.Submissions, err = s.submissions.DeleteEmptySubmissions(ctx, tx, sc.SubmissionIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("purge %s: %w", scope, err)
	}
	if !out.Matched {
		return out, nil
	}

	out.Files = s.removeFiles(ctx, paths)
	s.finish(ctx, out)
	return out, nil
}

// DeleteInvoice removes one invoice and its file. The submission and the
// employee are kept. Returns repository.ErrNotFound for unknown ids.
func (s *Service) DeleteInvoice(ctx context.Context, id string) (model.Invoice, Outcome, error) {
	inv, err := s.submissions.GetInvoice(ctx, id)
	if err != nil {
		return model.Invoice{}, Outcome{}, err
	}
	n, err := s.submissions.DeleteInvoices(ctx, s.db, []string{id})
	if err != nil {
		return model.Invoice{}, Outcome{}, fmt.Errorf("delete invoice: %w", err)
	}
	if n == 0 {
		return model.Invoice{}, Outcome{}, repository.ErrNotFound
	}

	out := Outcome{PurgeResult: model.PurgeResult{Invoices: n}, Scope: ScopeInvoice, Matched: true}
	if inv.FilePath != "" {
		out.Files = s.removeFiles(ctx, []string{inv.FilePath})
	}
	s.finish(ctx, out)
	return inv, out, nil
}

func (s *Service) removeFiles(ctx context.Context, paths []string) int {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		if name := model.StoredName(p); storage.CheckName(name) == nil {
			names = append(names, name)
		}
	}
	n, err := storage.DeleteAll(ctx, s.store, names)
	if err != nil {
		s.log.Warn(ctx, "records: some files were not removed", "error", err)
	}
	return n
}

func (s *Service) finish(ctx context.Context, out Outcome) {
	s.log.Info(ctx, "records purged", "scope", out.Scope,
		"invoices", out.Invoices, "submissions", out.Submissions, "employees", out.Employees, "files", out.Files)
	_ = s.audit.Publish(ctx, queue.AuditEvent{
		Type:        queue.EventRecordsPurged,
		At:          model.FormatTime(s.now()),
		Scope:       out.Scope,
		Invoices:    out.Invoices,
		Submissions: out.Submissions,
		Employees:   out.Employees,
		Files:       out.Files,
	})
}
