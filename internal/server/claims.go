package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/smallbiznis/shaadmin/internal/claim/domain"
)

func (s *Server) SubmitClaim(c *gin.Context) {
	var req claimdomain.SubmitRequest
	if !bindJSON(c, &req) {
		return
	}

	claim, err := s.claimSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": claim})
}

func (s *Server) ListClaims(c *gin.Context) {
	var req claimdomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.claimSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Claims, "page_info": resp.PageInfo})
}

func (s *Server) GetClaim(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	claim, err := s.claimSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claim})
}

func (s *Server) ReviewClaim(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	claim, err := s.claimSvc.MarkUnderReview(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claim})
}

func (s *Server) ApproveClaim(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	claim, err := s.claimSvc.Approve(c.Request.Context(), id, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claim})
}

func (s *Server) RejectClaim(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !bindJSON(c, &req) {
		return
	}

	claim, err := s.claimSvc.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claim})
}

func (s *Server) AdjustClaimItem(c *gin.Context) {
	claimID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	var req claimdomain.AdjustItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := s.claimSvc.AdjustItem(c.Request.Context(), claimID, itemID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) BulkReviewClaims(c *gin.Context) {
	var req bulkRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.claimSvc.BulkMarkUnderReview(c.Request.Context(), req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) BulkApproveClaims(c *gin.Context) {
	var req bulkRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.claimSvc.BulkApprove(c.Request.Context(), req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) BulkRejectClaims(c *gin.Context) {
	var req bulkRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.claimSvc.BulkReject(c.Request.Context(), req.IDs, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
