package records

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AhmedTUD/invoice/internal/database"
	"github.com/AhmedTUD/invoice/internal/filter"
	"github.com/AhmedTUD/invoice/internal/intake"
	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/queue"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/storage"
	"github.com/AhmedTUD/invoice/internal/utils"
)

type auditLog struct{ events []queue.AuditEvent }

func (a *auditLog) Publish(_ context.Context, ev queue.AuditEvent) error {
	a.events = append(a.events, ev)
	return nil
}

type fixture struct {
	svc    *Service
	intake *intake.Service
	db     *sql.DB
	store  *storage.LocalStore
	audit  *auditLog
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, "sqlite"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/.gitkeep", nil, 0o644))
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	subs := repository.NewSubmissionRepo(db)
	audit := &auditLog{}
	return fixture{
		svc: NewService(db, subs, store, Options{
			Links: utils.NewFileLinkSigner("secret", time.Minute),
			Audit: audit,
		}),
		intake: intake.NewService(db, repository.NewEmployeeRepo(db), subs, store, intake.Options{}),
		db:     db,
		store:  store,
		audit:  audit,
	}
}

var pdf = []byte("%PDF-1.4\n%%EOF\n")

func (f fixture) seed(t *testing.T, b model.BasicData, drafts ...model.InvoiceDraft) string {
	t.Helper()
	files := map[string]intake.Upload{}
	for _, d := range drafts {
		files[d.ID] = intake.FromBytes(d.ID+".pdf", pdf)
	}
	res, err := f.intake.Submit(context.Background(), intake.Request{Basic: b, Invoices: drafts, Files: files})
	require.NoError(t, err)
	return res.SubmissionID
}

func files(t *testing.T, s *storage.LocalStore) int {
	t.Helper()
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if e.Name() != ".gitkeep" {
			n++
		}
	}
	return n
}

func rows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

var (
	ahmed = model.BasicData{Email: "ahmed@x.com", Name: "Ahmed Ali", Mobile: "010", Serial: "EMP-1", StoreName: "Cairo Mall", StoreCode: "CAI-01"}
	mona  = model.BasicData{Email: "mona@x.com", Name: "Mona", Mobile: "011", Serial: "EMP-2", StoreName: "Alex", StoreCode: "ALX-02"}
)

func populate(t *testing.T, f fixture) {
	t.Helper()
	f.seed(t, ahmed,
		model.InvoiceDraft{ID: "a1", Model: "RS68", SalesDate: "2025-01-05"},
		model.InvoiceDraft{ID: "a2", Model: "WW11", SalesDate: "2025-02-05"})
	f.seed(t, mona, model.InvoiceDraft{ID: "m1", Model: "RS68", SalesDate: "2025-03-05"})
}

func TestList_FiltersAndAttachesFiles(t *testing.T) {
	f := setup(t)
	populate(t, f)
	ctx := context.Background()

	all, err := f.svc.List(ctx, filter.Set{}, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, r := range all {
		assert.Empty(t, r.FileDataURL)
		assert.True(t, strings.HasPrefix(r.FileURL, "/api/files/"))
	}

	got, err := f.svc.List(ctx, filter.Set{Store: "cai", Model: "rs"}, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ahmed Ali", got[0].Name)
	assert.True(t, strings.HasPrefix(got[0].FileDataURL, "data:application/pdf;base64,"))
}

func TestPurgeFiltered_RequiresFiltersOrConfirmation(t *testing.T) {
	f := setup(t)
	populate(t, f)

	_, err := f.svc.PurgeFiltered(context.Background(), filter.Set{Name: "  "}, false)
	assert.ErrorIs(t, err, ErrEmptyFilters)
	assert.Equal(t, 3, rows(t, f.db, "invoices"))

	out, err := f.svc.PurgeFiltered(context.Background(), filter.Set{}, true)
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, out.Scope)
	assert.Equal(t, int64(3), out.Invoices)
	assert.Zero(t, rows(t, f.db, "employees"))
}

func TestPurgeFiltered_KeepsPartiallyMatchedSubmissions(t *testing.T) {
	f := setup(t)
	populate(t, f)

	out, err := f.svc.PurgeFiltered(context.Background(), filter.Set{Model: "RS68"}, false)
	require.NoError(t, err)

	assert.True(t, out.Matched)
	assert.Equal(t, int64(2), out.Invoices)
	assert.Equal(t, int64(1), out.Submissions, "only mona's submission is left empty")
	assert.Equal(t, 2, out.Files)
	assert.Equal(t, 1, rows(t, f.db, "invoices"))
	assert.Equal(t, 1, rows(t, f.db, "submissions"))
	assert.Equal(t, 2, rows(t, f.db, "employees"))
	assert.Equal(t, 1, files(t, f.store))

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, ScopeFiltered, f.audit.events[0].Scope)
}

func TestPurgeFiltered_NothingMatched(t *testing.T) {
	f := setup(t)
	populate(t, f)

	out, err := f.svc.PurgeFiltered(context.Background(), filter.Set{Serial: "EMP-9"}, false)
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Equal(t, 3, rows(t, f.db, "invoices"))
	assert.Empty(t, f.audit.events)
}

func TestPurgeInvoices_KeepsSubmissions(t *testing.T) {
	f := setup(t)
	populate(t, f)

	out, err := f.svc.PurgeInvoices(context.Background(), filter.Set{DateTo: "2025-02-05"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Invoices)
	assert.Zero(t, out.Submissions)
	assert.Equal(t, 2, rows(t, f.db, "submissions"))

	out, err = f.svc.PurgeInvoices(context.Background(), filter.Set{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Invoices)
	assert.Zero(t, rows(t, f.db, "invoices"))
	assert.Zero(t, files(t, f.store))

	out, err = f.svc.PurgeInvoices(context.Background(), filter.Set{})
	require.NoError(t, err)
	assert.False(t, out.Matched)
}

func TestPurgeAll_RemovesFilesKeepsGitkeep(t *testing.T) {
	f := setup(t)
	populate(t, f)

	out, err := f.svc.PurgeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.PurgeResult{Invoices: 3, Submissions: 2, Employees: 2, Files: 3}, out.PurgeResult)
	assert.Zero(t, files(t, f.store))
	_, err = os.Stat(f.store.Dir() + "/.gitkeep")
	assert.NoError(t, err)
}

func TestDeleteInvoice(t *testing.T) {
	f := setup(t)
	populate(t, f)
	ctx := context.Background()

	var id string
	require.NoError(t, f.db.QueryRow("SELECT id FROM invoices WHERE model = 'WW11'").Scan(&id))

	inv, out, err := f.svc.DeleteInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "WW11", inv.Model)
	assert.Equal(t, 1, out.Files)
	assert.Equal(t, 2, rows(t, f.db, "submissions"))
	assert.Equal(t, 2, files(t, f.store))

	_, _, err = f.svc.DeleteInvoice(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
