package model

import "time"

// Submission snapshots the employee attributes at intake time.
type Submission struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Mobile     string    `json:"mobile"`
	Serial     string    `json:"serial"`
	StoreName  string    `json:"storeName"`
	StoreCode  string    `json:"storeCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Invoice is one sold item of a submission. Model holds the catalog name as
// it was at submission time; renaming a catalog entry does not rewrite it.
type Invoice struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	Model        string    `json:"model"`
	SalesDate    string    `json:"salesDate"` // YYYY-MM-DD
	FileName     string    `json:"fileName,omitempty"`
	FilePath     string    `json:"filePath,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// InvoiceDraft is one entry of the intake invoicesData array. ID is a client
// correlation id used to pair the draft with its uploaded file.
type InvoiceDraft struct {
	ID        string `json:"id"`
	Model     string `json:"model"`
	SalesDate string `json:"salesDate"`
}

// JoinedRecord is a submission row combined with one of its invoices.
// Invoice fields are empty for submissions without invoices.
type JoinedRecord struct {
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Mobile         string    `json:"mobile"`
	Serial         string    `json:"serial"`
	StoreName      string    `json:"storeName"`
	StoreCode      string    `json:"storeCode"`
	SubmissionID   string    `json:"submissionId"`
	SubmissionDate time.Time `json:"submissionDate"`
	InvoiceID      string    `json:"invoiceId,omitempty"`
	Model          string    `json:"model,omitempty"`
	Category       string    `json:"category,omitempty"`
	SalesDate      string    `json:"salesDate,omitempty"`
	FileName       string    `json:"fileName,omitempty"`
	FilePath       string    `json:"-"`
	FileDataURL    string    `json:"fileDataUrl,omitempty"`
	FileURL        string    `json:"fileUrl,omitempty"`
}

// StoredName returns the object name of the invoice file, without the
// /uploads/ prefix kept in the database.
func (r JoinedRecord) StoredName() string {
	return StoredName(r.FilePath)
}

// PurgeResult reports how many rows and files a purge removed.
type PurgeResult struct {
	Invoices    int64 `json:"invoices"`
	Submissions int64 `json:"submissions"`
	Employees   int64 `json:"employees"`
	Files       int   `json:"files"`
}
