package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	dashboarddomain "github.com/smallbiznis/shaadmin/internal/dashboard/domain"
)

// GetDashboard serves the cached summary; ?refresh=true recomputes it.
func (s *Server) GetDashboard(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	var (
		summary *dashboarddomain.Summary
		err     error
	)
	if refresh {
		summary, err = s.dashboardSvc.Refresh(c.Request.Context())
	} else {
		summary, err = s.dashboardSvc.Summary(c.Request.Context())
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
