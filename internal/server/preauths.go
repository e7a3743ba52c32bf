package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	preauthdomain "github.com/smallbiznis/shaadmin/internal/preauth/domain"
	"github.com/smallbiznis/shaadmin/internal/scheduler"
)

func (s *Server) RequestPreAuthorization(c *gin.Context) {
	var req preauthdomain.RequestRequest
	if !bindJSON(c, &req) {
		return
	}

	auth, err := s.preAuthSvc.Request(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": auth})
}

func (s *Server) ListPreAuthorizations(c *gin.Context) {
	var req preauthdomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.preAuthSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.PreAuthorizations, "page_info": resp.PageInfo})
}

func (s *Server) GetPreAuthorization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	auth, err := s.preAuthSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": auth})
}

func (s *Server) ApprovePreAuthorization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	auth, err := s.preAuthSvc.Approve(c.Request.Context(), id, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": auth})
}

func (s *Server) RejectPreAuthorization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !bindJSON(c, &req) {
		return
	}

	auth, err := s.preAuthSvc.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": auth})
}

func (s *Server) BulkApprovePreAuthorizations(c *gin.Context) {
	var req bulkRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.preAuthSvc.BulkApprove(c.Request.Context(), req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) BulkRejectPreAuthorizations(c *gin.Context) {
	var req bulkRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.preAuthSvc.BulkReject(c.Request.Context(), req.IDs, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ExpirePreAuthorizations runs the expiry sweep on demand, under the same
// lock as the background loop.
func (s *Server) ExpirePreAuthorizations(c *gin.Context) {
	expired, err := s.scheduler.RunJob(c.Request.Context(), scheduler.JobExpirePreAuths)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"expired": expired}})
}
