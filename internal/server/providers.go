package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	providerdomain "github.com/smallbiznis/shaadmin/internal/provider/domain"
)

func (s *Server) RegisterProvider(c *gin.Context) {
	var req providerdomain.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	provider, err := s.providerSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": provider})
}

func (s *Server) ListProviders(c *gin.Context) {
	var req providerdomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.providerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Providers, "page_info": resp.PageInfo})
}

func (s *Server) GetProvider(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	provider, err := s.providerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": provider})
}

func (s *Server) UpdateProvider(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req providerdomain.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	provider, err := s.providerSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": provider})
}

func (s *Server) SetProviderContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req providerdomain.ContractRequest
	if !bindJSON(c, &req) {
		return
	}

	provider, err := s.providerSvc.SetContract(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": provider})
}

func (s *Server) DeactivateProvider(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	provider, err := s.providerSvc.Deactivate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": provider})
}

func (s *Server) ActivateProvider(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	provider, err := s.providerSvc.Activate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": provider})
}
