// Package repository holds the SQL data access for employees, submissions,
// invoices, the model catalog and admin sessions. Queries use "?" placeholders
// and portable SQL so the same code runs on sqlite and MySQL.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicateName is returned when a catalog model name is already taken.
var ErrDuplicateName = errors.New("model name already exists")

// ErrModelInUse is wrapped by InUseError.
var ErrModelInUse = errors.New("model is referenced by invoices")

// InUseError blocks deleting a catalog model that invoices still reference.
type InUseError struct {
	Name  string
	Count int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("model %q is used by %d invoice(s)", e.Name, e.Count)
}

func (e *InUseError) Unwrap() error { return ErrModelInUse }

// isUniqueViolation recognises unique constraint errors of both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "1062")
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// chunk splits ids so IN lists stay below driver parameter limits.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
