package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	benefitdomain "github.com/smallbiznis/shaadmin/internal/benefit/domain"
)

func (s *Server) CreateBenefitPackage(c *gin.Context) {
	var req benefitdomain.CreatePackageRequest
	if !bindJSON(c, &req) {
		return
	}

	pkg, err := s.benefitSvc.CreatePackage(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": pkg})
}

func (s *Server) ListBenefitPackages(c *gin.Context) {
	var req benefitdomain.ListPackagesRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.benefitSvc.ListPackages(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Packages, "page_info": resp.PageInfo})
}

func (s *Server) GetBenefitPackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	pkg, err := s.benefitSvc.GetPackage(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pkg})
}

func (s *Server) UpdateBenefitPackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req benefitdomain.UpdatePackageRequest
	if !bindJSON(c, &req) {
		return
	}

	pkg, err := s.benefitSvc.UpdatePackage(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pkg})
}

func (s *Server) CreateBenefitService(c *gin.Context) {
	var req benefitdomain.CreateServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	svc, err := s.benefitSvc.CreateService(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": svc})
}

func (s *Server) ListBenefitServices(c *gin.Context) {
	var req benefitdomain.ListServicesRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.benefitSvc.ListServices(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Services, "page_info": resp.PageInfo})
}

func (s *Server) GetBenefitService(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc, err := s.benefitSvc.GetService(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": svc})
}

func (s *Server) UpdateBenefitService(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req benefitdomain.UpdateServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	svc, err := s.benefitSvc.UpdateService(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": svc})
}
