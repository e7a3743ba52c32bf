package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	reportdomain "github.com/smallbiznis/shaadmin/internal/report/domain"
)

func (s *Server) GenerateReport(c *gin.Context) {
	var req reportdomain.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := s.reportSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": report})
}

func (s *Server) ListReports(c *gin.Context) {
	var req reportdomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.reportSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Reports, "page_info": resp.PageInfo})
}

func (s *Server) GetReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	report, err := s.reportSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) DownloadReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	report, body, err := s.reportSvc.Open(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer body.Close()

	filename := fmt.Sprintf("%s.%s", slug.Make(report.ReportName), report.FileFormat.Ext())
	c.DataFromReader(http.StatusOK, -1, report.FileFormat.ContentType(), body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
	})
}
