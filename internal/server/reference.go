package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
)

// GetReferenceSequence peeks at a counter without issuing a code. Without
// ?year= every counter of the family is listed.
func (s *Server) GetReferenceSequence(c *gin.Context) {
	family, err := referencedomain.ParseFamily(c.Param("family"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := parseOptionalInt(c.Query("year"))
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}

	ctx := c.Request.Context()
	if year == nil {
		sequences, err := s.referenceSvc.List(ctx, family)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": sequences})
		return
	}

	sequence, err := s.referenceSvc.Peek(ctx, family, *year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sequence})
}
