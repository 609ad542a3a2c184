// Package routing assigns failed verdicts and discrepancies to the department that resolves them.
package routing

import (
	"strings"

	"trade-recon/internal/rules"
)

// Unassigned is returned when no department claims any reason.
const Unassigned = "NA"

// Router matches reason text against the catalog's department table.
type Router struct {
	departments []rules.Department
}

func New(cat *rules.Catalog) *Router {
	return &Router{departments: cat.Departments()}
}

// Route walks reasons in order and, for each, departments in configuration order. The first
// department owning a field name that occurs anywhere inside the reason wins. Matching is plain
// substring search, so a short field name ("Date") also claims reasons about longer ones
// ("Settlement Date") when its department is listed first.
func (r *Router) Route(reasons []string) string {
	for _, reason := range reasons {
		for _, dept := range r.departments {
			for _, field := range dept.Fields {
				if field != "" && strings.Contains(reason, field) {
					return dept.Name
				}
			}
		}
	}
	return Unassigned
}
