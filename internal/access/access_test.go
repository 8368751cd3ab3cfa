package access

import (
	"testing"

	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/stretchr/testify/assert"
)

func TestCanEdit_Anonymous(t *testing.T) {
	for _, p := range []int{-1, 0, 3, 5, 6, 100} {
		assert.False(t, CanEdit(nil, p), "page %d", p)
	}
}

func TestCanEdit_AdminEditsEverything(t *testing.T) {
	u := &user.User{ID: "a1", Role: user.RoleAdmin}

	for _, p := range []int{-1, 0, 3, 5, 6, 100} {
		assert.True(t, CanEdit(u, p), "page %d", p)
	}
}

func TestCanEdit_AdminIgnoresPageSet(t *testing.T) {
	u := &user.User{ID: "a1", Role: user.RoleAdmin, EditablePages: []int{2}}

	assert.True(t, CanEdit(u, 0))
	assert.True(t, CanEdit(u, 4))
}

func TestCanEdit_ViewerEditsNothing(t *testing.T) {
	u := &user.User{ID: "v1", Role: user.RoleViewer, EditablePages: []int{0, 1, 2}}

	for _, p := range []int{-1, 0, 1, 2, 5, 100} {
		assert.False(t, CanEdit(u, p), "page %d", p)
	}
}

func TestCanEdit_EditorListedPagesOnly(t *testing.T) {
	u := &user.User{ID: "e1", Role: user.RoleEditor, EditablePages: []int{1, 4}}

	tests := []struct {
		page int
		want bool
	}{
		{page: 0, want: false},
		{page: 1, want: true},
		{page: 2, want: false},
		{page: 4, want: true},
		{page: 5, want: false},
		{page: 9, want: false},
		{page: -1, want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanEdit(u, tt.page), "page %d", tt.page)
	}
}

func TestCanEdit_EditorWithoutPages(t *testing.T) {
	u := &user.User{ID: "e2", Role: user.RoleEditor}

	assert.False(t, CanEdit(u, 0))
}

func TestCanEdit_UnknownRoleDenies(t *testing.T) {
	u := &user.User{ID: "x", Role: user.Role("superuser"), EditablePages: []int{0}}

	assert.False(t, CanEdit(u, 0))
}

func TestEditablePageIndices(t *testing.T) {
	catalog := page.DefaultCatalog()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, EditablePageIndices(&user.User{Role: user.RoleAdmin}, catalog))
	assert.Equal(t, []int{}, EditablePageIndices(&user.User{Role: user.RoleViewer}, catalog))
	assert.Equal(t, []int{}, EditablePageIndices(nil, catalog))

	// pages outside the catalog are not listed even if the editor holds them
	editor := &user.User{Role: user.RoleEditor, EditablePages: []int{5, 2, 42}}
	assert.Equal(t, []int{2, 5}, EditablePageIndices(editor, catalog))
}
