package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
)

func (s *Server) OpenPeriod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req perioddomain.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.periodSvc.Open(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPeriod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := s.periodSvc.Get(c.Request.Context(), userID, c.Param("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
