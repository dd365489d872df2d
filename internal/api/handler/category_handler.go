package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assignhub/marketplace/internal/core/domain"
)

// CategoryLister is the read side of the category store.
type CategoryLister interface {
	List(ctx context.Context) ([]*domain.Category, error)
}

type CategoryHandler struct {
	categories CategoryLister
}

func NewCategoryHandler(categories CategoryLister) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List handles GET /categories.
//
// @Summary      List assignment categories
// @Tags         categories
// @Produce      json
// @Success      200  {array}   domain.Category
// @Failure      500  {object}  errorResponse
// @Router       /categories [get]
func (h *CategoryHandler) List(c echo.Context) error {
	cats, err := h.categories.List(c.Request().Context())
	if err != nil {
		return domain.WrapStorage("list categories", err)
	}
	if cats == nil {
		cats = []*domain.Category{}
	}
	return c.JSON(http.StatusOK, cats)
}
