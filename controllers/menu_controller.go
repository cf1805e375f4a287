package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
)

type MenuController struct {
	catalog CatalogService
}

func NewMenuController(catalog CatalogService) *MenuController {
	return &MenuController{catalog: catalog}
}

// ListMenu handles GET /menu
func (mc *MenuController) ListMenu(c *gin.Context) {
	items, err := mc.catalog.ListMenu(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
