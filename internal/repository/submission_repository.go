package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AhmedTUD/invoice/internal/dbx"
	"github.com/AhmedTUD/invoice/internal/filter"
	"github.com/AhmedTUD/invoice/internal/model"
)

// SubmissionRepo persists submissions and their invoices.
type SubmissionRepo struct{ DB *sql.DB }

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{DB: db} }

// inChunk bounds IN (...) lists.
const inChunk = 500

// Insert adds a submission row.
func (r *SubmissionRepo) Insert(ctx context.Context, q dbx.DBTX, s model.Submission) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO submissions (id, employee_id, email, name, mobile, serial, store_name, store_code, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.EmployeeID, s.Email, s.Name, s.Mobile, s.Serial, s.StoreName, s.StoreCode, model.FormatTime(s.CreatedAt))
	return err
}

// InsertInvoice adds an invoice row.
func (r *SubmissionRepo) InsertInvoice(ctx context.Context, q dbx.DBTX, inv model.Invoice) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO invoices (id, submission_id, model, sales_date, file_name, file_path, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		inv.ID, inv.SubmissionID, inv.Model, inv.SalesDate, inv.FileName, inv.FilePath, model.FormatTime(inv.CreatedAt))
	return err
}

const joinedSelect = `SELECT s.email, s.name, s.mobile, s.serial, s.store_name, s.store_code,
	s.id, s.created_at, i.id, i.model, m.category, i.sales_date, i.file_name, i.file_path
FROM submissions s
LEFT JOIN invoices i ON i.submission_id = s.id
LEFT JOIN models m ON m.name = i.model`

// ListJoined returns one record per (submission, invoice) pair matching f,
// newest submission first. Submissions without invoices yield one record
// with empty invoice fields.
func (r *SubmissionRepo) ListJoined(ctx context.Context, f filter.Set) ([]model.JoinedRecord, error) {
	query := joinedSelect
	where, args := f.Where()
	if where != "" {
		query += "\nWHERE " + where
	}
	query += "\nORDER BY s.created_at DESC, i.created_at ASC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.JoinedRecord{}
	for rows.Next() {
		var (
			rec                                               model.JoinedRecord
			createdAt                                         string
			invID, invModel, category, sales, fname, fpath sql.NullString
		)
		if err := rows.Scan(&rec.Email, &rec.Name, &rec.Mobile, &rec.Serial, &rec.StoreName, &rec.StoreCode,
			&rec.SubmissionID, &createdAt, &invID, &invModel, &category, &sales, &fname, &fpath); err != nil {
			return nil, err
		}
		rec.SubmissionDate = parseTime(createdAt)
		rec.InvoiceID = invID.String
		rec.Model = invModel.String
		rec.Category = category.String
		rec.SalesDate = sales.String
		rec.FileName = fname.String
		rec.FilePath = fpath.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Scope is the set of rows a filtered delete touches.
type Scope struct {
	InvoiceIDs    []string
	SubmissionIDs []string
	FilePaths     []string
}

// Empty reports whether nothing matched.
func (s Scope) Empty() bool { return len(s.InvoiceIDs) == 0 && len(s.SubmissionIDs) == 0 }

// FindScope collects the distinct invoices, submissions and file paths
// matching f.
func (r *SubmissionRepo) FindScope(ctx context.Context, q dbx.DBTX, f filter.Set) (Scope, error) {
	query := `SELECT DISTINCT s.id, i.id, i.file_path
FROM submissions s
LEFT JOIN invoices i ON i.submission_id = s.id`
	where, args := f.Where()
	if where != "" {
		query += "\nWHERE " + where
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return Scope{}, err
	}
	defer rows.Close()

	var (
		sc      Scope
		seenSub = map[string]bool{}
		seenInv = map[string]bool{}
	)
	for rows.Next() {
		var (
			subID       string
			invID, path sql.NullString
		)
		if err := rows.Scan(&subID, &invID, &path); err != nil {
			return Scope{}, err
		}
		if !seenSub[subID] {
			seenSub[subID] = true
			sc.SubmissionIDs = append(sc.SubmissionIDs, subID)
		}
		if invID.Valid && !seenInv[invID.String] {
			seenInv[invID.String] = true
			sc.InvoiceIDs = append(sc.InvoiceIDs, invID.String)
			if path.String != "" {
				sc.FilePaths = append(sc.FilePaths, path.String)
			}
		}
	}
	return sc, rows.Err()
}

// DeleteInvoices removes invoices by id.
func (r *SubmissionRepo) DeleteInvoices(ctx context.Context, q dbx.DBTX, ids []string) (int64, error) {
	var total int64
	for _, part := range chunk(ids, inChunk) {
		res, err := q.ExecContext(ctx, "DELETE FROM invoices WHERE id IN ("+placeholders(len(part))+")", toArgs(part)...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// DeleteEmptySubmissions removes the given submissions that no longer have
// any invoice.
func (r *SubmissionRepo) DeleteEmptySubmissions(ctx context.Context, q dbx.DBTX, ids []string) (int64, error) {
	var total int64
	for _, part := range chunk(ids, inChunk) {
		res, err := q.ExecContext(ctx,
			"DELETE FROM submissions WHERE id IN ("+placeholders(len(part))+
				") AND NOT EXISTS (SELECT 1 FROM invoices i WHERE i.submission_id = submissions.id)",
			toArgs(part)...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// AllFilePaths lists every stored invoice file path.
func (r *SubmissionRepo) AllFilePaths(ctx context.Context, q dbx.DBTX) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT file_path FROM invoices WHERE file_path <> ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteAll empties invoices, submissions and employees, in dependency order.
func (r *SubmissionRepo) DeleteAll(ctx context.Context, q dbx.DBTX) (model.PurgeResult, error) {
	var res model.PurgeResult
	steps := []struct {
		query string
		dst   *int64
	}{
		{"DELETE FROM invoices", &res.Invoices},
		{"DELETE FROM submissions", &res.Submissions},
		{"DELETE FROM employees", &res.Employees},
	}
	for _, st := range steps {
		out, err := q.ExecContext(ctx, st.query)
		if err != nil {
			return res, err
		}
		*st.dst, _ = out.RowsAffected()
	}
	return res, nil
}

// GetInvoice returns ErrNotFound for unknown ids.
func (r *SubmissionRepo) GetInvoice(ctx context.Context, id string) (model.Invoice, error) {
	var (
		inv       model.Invoice
		createdAt string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, submission_id, model, sales_date, file_name, file_path, created_at FROM invoices WHERE id = ?", id).
		Scan(&inv.ID, &inv.SubmissionID, &inv.Model, &inv.SalesDate, &inv.FileName, &inv.FilePath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invoice{}, ErrNotFound
	}
	if err != nil {
		return model.Invoice{}, err
	}
	inv.CreatedAt = parseTime(createdAt)
	return inv, nil
}
