package user

import (
	"errors"
	"sort"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"  // edits every page
	RoleEditor Role = "editor" // edits the pages listed in EditablePages
	RoleViewer Role = "viewer" // read-only
)

var ErrInvalidRole = errors.New("invalid role")

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))

	if !r.IsValid() {
		return "", ErrInvalidRole
	}

	return r, nil
}

type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"` // never expose hash in JSON
	Role          Role      `json:"role"`
	EditablePages []int     `json:"editablePages"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Normalize drops the page set for roles that ignore it and sorts/dedupes it for editors.
func (u User) Normalize() User {
	if u.Role != RoleEditor {
		u.EditablePages = []int{}
		return u
	}

	seen := make(map[int]struct{}, len(u.EditablePages))
	pages := make([]int, 0, len(u.EditablePages))

	for _, p := range u.EditablePages {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pages = append(pages, p)
	}

	sort.Ints(pages)
	u.EditablePages = pages

	return u
}

type CreateUserRequest struct {
	Username      string `json:"username" binding:"required,min=3,max=64"`
	Password      string `json:"password" binding:"required,min=8,max=128"`
	Role          string `json:"role" binding:"required,oneof=admin editor viewer"`
	EditablePages []int  `json:"editablePages" binding:"omitempty,dive,min=0"`
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already in use")
)
