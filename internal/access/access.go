// Package access decides which pages a user may edit.
package access

import (
	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
)

// CanEdit reports whether u may add, change or delete items on pageIndex.
// A nil user is anonymous and never edits.
func CanEdit(u *user.User, pageIndex int) bool {
	if u == nil {
		return false
	}

	switch u.Role {
	case user.RoleAdmin:
		return true
	case user.RoleEditor:
		for _, p := range u.EditablePages {
			if p == pageIndex {
				return true
			}
		}
		return false
	case user.RoleViewer:
		return false
	default:
		return false
	}
}

// EditablePageIndices lists the catalog pages u may edit, in catalog order.
func EditablePageIndices(u *user.User, catalog page.Catalog) []int {
	out := []int{}

	for _, idx := range catalog.Indices() {
		if CanEdit(u, idx) {
			out = append(out, idx)
		}
	}

	return out
}
