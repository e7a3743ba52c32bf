package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	memberdomain "github.com/smallbiznis/shaadmin/internal/member/domain"
)

func (s *Server) RegisterMember(c *gin.Context) {
	var req memberdomain.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := s.memberSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": member})
}

func (s *Server) ListMembers(c *gin.Context) {
	var req memberdomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.memberSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Members, "page_info": resp.PageInfo})
}

func (s *Server) GetMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	member, err := s.memberSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) GetMemberBySHANumber(c *gin.Context) {
	shaNumber := strings.TrimSpace(c.Query("sha_number"))
	if shaNumber == "" {
		AbortWithError(c, newValidationError("sha_number", "invalid_sha_number", "sha_number is required"))
		return
	}

	member, err := s.memberSvc.GetBySHANumber(c.Request.Context(), shaNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) UpdateMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req memberdomain.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := s.memberSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) DeactivateMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	member, err := s.memberSvc.Deactivate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) ActivateMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	member, err := s.memberSvc.Activate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) ListMemberDependents(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	dependents, err := s.memberSvc.ListDependents(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dependents})
}

func (s *Server) GetMemberContributionSummary(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := s.contributionSvc.MemberSummary(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
