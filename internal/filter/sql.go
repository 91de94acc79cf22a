package filter

import "strings"

// Where renders f as a SQL condition over the aliases s (submissions) and
// i (invoices) with "?" placeholders. It returns "" and no args for an empty
// set. Text predicates compare lower-cased values with LIKE and escape the
// wildcards of user input.
func (f Set) Where() (string, []any) {
	f = f.Normalize()
	var (
		conds []string
		args  []any
	)
	like := func(col, v string) {
		conds = append(conds, "LOWER("+col+") LIKE ? ESCAPE '!'")
		args = append(args, "%"+EscapeLike(strings.ToLower(v))+"%")
	}

	if f.Name != "" {
		like("s.name", f.Name)
	}
	if f.Serial != "" {
		like("s.serial", f.Serial)
	}
	if f.Store != "" {
		v := "%" + EscapeLike(strings.ToLower(f.Store)) + "%"
		conds = append(conds, "(LOWER(s.store_name) LIKE ? ESCAPE '!' OR LOWER(s.store_code) LIKE ? ESCAPE '!')")
		args = append(args, v, v)
	}
	if f.Model != "" {
		like("i.model", f.Model)
	}
	if f.DateFrom != "" {
		conds = append(conds, "i.sales_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds = append(conds, "i.sales_date <= ?")
		args = append(args, f.DateTo)
	}
	return strings.Join(conds, " AND "), args
}

// EscapeLike escapes LIKE wildcards for patterns declared with ESCAPE '!'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
