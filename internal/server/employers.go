package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	employerdomain "github.com/smallbiznis/shaadmin/internal/employer/domain"
)

func (s *Server) RegisterEmployer(c *gin.Context) {
	var req employerdomain.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	employer, err := s.employerSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": employer})
}

func (s *Server) ListEmployers(c *gin.Context) {
	var req employerdomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.employerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Employers, "page_info": resp.PageInfo})
}

func (s *Server) GetEmployer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	employer, err := s.employerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employer})
}

func (s *Server) UpdateEmployer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req employerdomain.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	employer, err := s.employerSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employer})
}

func (s *Server) DeactivateEmployer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	employer, err := s.employerSvc.Deactivate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employer})
}

func (s *Server) ActivateEmployer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	employer, err := s.employerSvc.Activate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employer})
}

func (s *Server) DeleteEmployer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.employerSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
