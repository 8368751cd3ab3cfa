package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/geocoder89/housepoints/internal/http/handlers"
	"github.com/geocoder89/housepoints/internal/repo/memory"
)

func TestAdminCreateUser(t *testing.T) {
	admin := &user.User{ID: "u-admin", Role: user.RoleAdmin}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantPages  []int
	}{
		{"editor with pages", `{"username":"eddie","password":"password1","role":"editor","editablePages":[3,1,3]}`, http.StatusCreated, []int{1, 3}},
		{"viewer drops pages", `{"username":"vivian","password":"password1","role":"viewer","editablePages":[2]}`, http.StatusCreated, []int{}},
		{"editor with unknown page", `{"username":"eddie2","password":"password1","role":"editor","editablePages":[6]}`, http.StatusBadRequest, nil},
		{"bad role", `{"username":"xavier1","password":"password1","role":"owner"}`, http.StatusBadRequest, nil},
		{"short password", `{"username":"xavier2","password":"short","role":"viewer"}`, http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewAdminUsersHandler(memory.NewUsersRepo(), page.DefaultCatalog())
			r := setupRouter(http.MethodPost, "/admin/users", admin, h.Create)

			req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d body=%s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantPages == nil {
				return
			}

			var got user.User
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got.EditablePages) != len(tt.wantPages) {
				t.Fatalf("expected pages %v, got %v", tt.wantPages, got.EditablePages)
			}
			for i := range tt.wantPages {
				if got.EditablePages[i] != tt.wantPages[i] {
					t.Fatalf("expected pages %v, got %v", tt.wantPages, got.EditablePages)
				}
			}
		})
	}
}

func TestAdminCreateUser_Duplicate(t *testing.T) {
	users := memory.NewUsersRepo()
	_, _ = users.Create(context.Background(), user.User{ID: "1", Username: "eddie", Role: user.RoleViewer})

	h := handlers.NewAdminUsersHandler(users, page.DefaultCatalog())
	r := setupRouter(http.MethodPost, "/admin/users", nil, h.Create)

	req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewBufferString(`{"username":"eddie","password":"password1","role":"viewer"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}
