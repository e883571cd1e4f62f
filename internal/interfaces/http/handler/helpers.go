package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/domain/feed"
)

// marketplaceParam parses and validates the :marketplace path parameter.
// Marketplace codes are stored upper-case; the URL form is accepted in
// either case.
func marketplaceParam(c *gin.Context) (feed.Marketplace, bool) {
	m := feed.Marketplace(strings.ToUpper(c.Param("marketplace")))
	return m, m.IsValid()
}
