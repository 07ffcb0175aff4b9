package nl2sql

import "strings"

// ExtractColumns pulls column names out of a generated statement's select
// list by plain text splitting. It is a usage-analytics heuristic, not a
// parser: anything that is not a simple "select ... from ..." yields an
// empty slice, and that is an accepted outcome.
func ExtractColumns(sqlText string) []string {
	lower := strings.ToLower(sqlText)
	_, afterSelect, found := strings.Cut(lower, "select")
	if !found {
		return nil
	}
	selectList, _, found := strings.Cut(afterSelect, "from")
	if !found {
		return nil
	}

	columns := make([]string, 0)
	for _, part := range strings.Split(selectList, ",") {
		name := strings.TrimSpace(part)
		if name == "" || name == "*" {
			continue
		}
		name, _, _ = strings.Cut(name, " as ")
		name = strings.TrimSpace(name)
		if name != "" {
			columns = append(columns, name)
		}
	}
	return columns
}
