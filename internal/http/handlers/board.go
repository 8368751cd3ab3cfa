package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/housepoints/internal/board"
	"github.com/geocoder89/housepoints/internal/config"
	"github.com/geocoder89/housepoints/internal/domain/item"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/geocoder89/housepoints/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BoardService interface {
	Standings(ctx context.Context, viewer *user.User) (board.Standings, error)
	Pages(ctx context.Context, viewer *user.User) ([]board.PageView, error)
	Page(ctx context.Context, viewer *user.User, pageIndex int) (board.PageDetail, error)
	Item(ctx context.Context, pageIndex int, id string) (item.Item, error)
	AddItem(ctx context.Context, actor *user.User, pageIndex int, req item.CreateRequest) (item.Item, error)
	UpdateItem(ctx context.Context, actor *user.User, pageIndex int, id string, req item.UpdateRequest) (item.Item, error)
	DeleteItem(ctx context.Context, actor *user.User, pageIndex int, id string) error
}

type BoardHandler struct {
	svc BoardService
}

func NewBoardHandler(svc BoardService) *BoardHandler {
	return &BoardHandler{svc: svc}
}

const boardTimeout = 3 * time.Second

// viewer is nil for anonymous requests.
func viewer(ctx *gin.Context) *user.User {
	u, _ := middlewares.UserFromContext(ctx)
	return u
}

func pageIndexParam(ctx *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || idx < 0 {
		RespondNotFound(ctx, "Page not found")
		return 0, false
	}
	return idx, true
}

// itemIDParam rejects ids that cannot exist; items are keyed by uuid.
func itemIDParam(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if uuid.Validate(id) != nil {
		RespondNotFound(ctx, "Item not found")
		return "", false
	}
	return id, true
}

func respondBoardError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, board.ErrUnknownPage):
		RespondNotFound(ctx, "Page not found")
	case errors.Is(err, item.ErrNotFound):
		RespondNotFound(ctx, "Item not found")
	case errors.Is(err, board.ErrUnauthenticated):
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
	case errors.Is(err, board.ErrForbidden):
		RespondForbidden(ctx, "Not allowed to edit this page")
	case errors.Is(err, item.ErrEmptyTitle):
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "title", Rule: "required", Message: "is required"}},
		})
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "board_request_failed",
			"route", ctx.FullPath(),
			"err", err,
		)
		RespondInternal(ctx, fallback)
	}
}

func (h *BoardHandler) Standings(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), boardTimeout)
	defer cancel()

	s, err := h.svc.Standings(cctx, viewer(ctx))
	if err != nil {
		respondBoardError(ctx, err, "Could not load standings")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, s)
}

func (h *BoardHandler) ListPages(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), boardTimeout)
	defer cancel()

	pages, err := h.svc.Pages(cctx, viewer(ctx))
	if err != nil {
		respondBoardError(ctx, err, "Could not load pages")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"pages": pages})
}

func (h *BoardHandler) GetPage(ctx *gin.Context) {
	idx, ok := pageIndexParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), boardTimeout)
	defer cancel()

	detail, err := h.svc.Page(cctx, viewer(ctx), idx)
	if err != nil {
		respondBoardError(ctx, err, "Could not load page")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, detail)
}

func (h *BoardHandler) GetItem(ctx *gin.Context) {
	idx, ok := pageIndexParam(ctx)
	if !ok {
		return
	}

	id, ok := itemIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), boardTimeout)
	defer cancel()

	it, err := h.svc.Item(cctx, idx, id)
	if err != nil {
		respondBoardError(ctx, err, "Could not load item")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, it)
}

func (h *BoardHandler) CreateItem(ctx *gin.Context) {
	idx, ok := pageIndexParam(ctx)
	if !ok {
		return
	}

	var req item.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), boardTimeout)
	defer cancel()

	created, err := h.svc.AddItem(cctx, viewer(ctx), idx, req)
	if err != nil {
		respondBoardError(ctx, err, "Could not create item")
		return
	}

	ctx.Header("Location", "/pages/"+strconv.Itoa(idx)+"/items/"+created.ID)
	ctx.JSON(http.StatusCreated, created)
}

func (h *BoardHandler) UpdateItem(ctx *gin.Context) {
	idx, ok := pageIndexParam(ctx)
	if !ok {
		return
	}

	id, ok := itemIDParam(ctx)
	if !ok {
		return
	}

	var req item.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), boardTimeout)
	defer cancel()

	updated, err := h.svc.UpdateItem(cctx, viewer(ctx), idx, id, req)
	if err != nil {
		respondBoardError(ctx, err, "Could not update item")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *BoardHandler) DeleteItem(ctx *gin.Context) {
	idx, ok := pageIndexParam(ctx)
	if !ok {
		return
	}

	id, ok := itemIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), boardTimeout)
	defer cancel()

	if err := h.svc.DeleteItem(cctx, viewer(ctx), idx, id); err != nil {
		respondBoardError(ctx, err, "Could not delete item")
		return
	}

	ctx.Status(http.StatusNoContent)
}
