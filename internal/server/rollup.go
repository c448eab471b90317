package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetFinancialOverview(c *gin.Context) {
	overview, err := s.rollupSvc.Overview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
