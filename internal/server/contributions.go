package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contributiondomain "github.com/smallbiznis/shaadmin/internal/contribution/domain"
)

func (s *Server) RecordContribution(c *gin.Context) {
	var req contributiondomain.RecordRequest
	if !bindJSON(c, &req) {
		return
	}

	contribution, err := s.contributionSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": contribution})
}

func (s *Server) ListContributions(c *gin.Context) {
	var req contributiondomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.contributionSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Contributions, "page_info": resp.PageInfo})
}

func (s *Server) GetContribution(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	contribution, err := s.contributionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contribution})
}

func (s *Server) BulkCompleteContributions(c *gin.Context) {
	var req bulkRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.contributionSvc.BulkMarkCompleted(c.Request.Context(), req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) BulkFailContributions(c *gin.Context) {
	var req bulkRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.contributionSvc.BulkMarkFailed(c.Request.Context(), req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ReverseContribution(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	contribution, err := s.contributionSvc.Reverse(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contribution})
}
