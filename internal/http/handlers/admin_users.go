package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/housepoints/internal/config"
	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/geocoder89/housepoints/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserAdminStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
}

type AdminUsersHandler struct {
	users   UserAdminStore
	catalog page.Catalog
}

func NewAdminUsersHandler(users UserAdminStore, catalog page.Catalog) *AdminUsersHandler {
	return &AdminUsersHandler{users: users, catalog: catalog}
}

func (h *AdminUsersHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		slog.Default().ErrorContext(cctx, "admin_users_list_failed", "err", err)
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

// Create adds an account. Editors must name only pages that exist in the catalog; the
// page list is ignored for other roles.
func (h *AdminUsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "role", Rule: "oneof", Message: "must be one of admin, editor, viewer"}},
		})
		return
	}

	if role == user.RoleEditor {
		var bad []FieldError
		for i, p := range req.EditablePages {
			if !h.catalog.Contains(p) {
				bad = append(bad, FieldError{
					Field:   "editablePages[" + strconv.Itoa(i) + "]",
					Rule:    "page",
					Message: "must be an existing page index",
				})
			}
		}
		if len(bad) > 0 {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": bad})
			return
		}
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	now := time.Now().UTC()

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	created, err := h.users.Create(cctx, user.User{
		ID:            uuid.NewString(),
		Username:      strings.TrimSpace(req.Username),
		PasswordHash:  hash,
		Role:          role,
		EditablePages: req.EditablePages,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			RespondConflict(ctx, "username_taken", "Username is already in use.")
			return
		}
		slog.Default().ErrorContext(cctx, "admin_user_create_failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	slog.Default().InfoContext(cctx, "admin_user_created", "user_id", created.ID, "role", string(created.Role))

	ctx.JSON(http.StatusCreated, created)
}
