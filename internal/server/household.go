package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	householddomain "github.com/fintraq/fintraq/internal/household/domain"
)

func (s *Server) UpsertHousehold(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req householddomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.householdSvc.Upsert(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetHousehold(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := s.householdSvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
