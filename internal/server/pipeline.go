package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) RecomputePipeline(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		AbortWithError(c, newValidationError("period", "invalid_period", "period is required"))
		return
	}

	resp, err := s.pipelineSvc.Recompute(c.Request.Context(), userID, period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDerivedProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := s.pipelineSvc.DerivedProfile(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLeakage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		AbortWithError(c, newValidationError("period", "invalid_period", "period is required"))
		return
	}

	resp, err := s.leakageSvc.Compute(c.Request.Context(), userID, period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInsights(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		AbortWithError(c, newValidationError("period", "invalid_period", "period is required"))
		return
	}

	resp, err := s.insightSvc.Insights(c.Request.Context(), userID, period)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
