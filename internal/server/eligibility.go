package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	eligibilitydomain "github.com/smallbiznis/shaadmin/internal/eligibility/domain"
)

func (s *Server) CheckEligibility(c *gin.Context) {
	var req eligibilitydomain.CheckRequest
	if !bindJSON(c, &req) {
		return
	}

	check, err := s.eligibilitySvc.Check(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": check})
}

func (s *Server) ListEligibilityChecks(c *gin.Context) {
	var req eligibilitydomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.eligibilitySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Checks, "page_info": resp.PageInfo})
}

func (s *Server) GetEligibilityCheck(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	check, err := s.eligibilitySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": check})
}
