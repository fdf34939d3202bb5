package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
)

func (s *Server) IngestTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req transactiondomain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.transactionSvc.Ingest(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
