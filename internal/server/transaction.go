package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	transactiondomain "github.com/smallbiznis/backoffice/internal/transaction/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type postTransactionRequest struct {
	Type            string  `json:"type"`
	PartnerID       string  `json:"partner_id"`
	Amount          string  `json:"amount"`
	TransactionDate *string `json:"transaction_date"`
	DebtID          string  `json:"debt_id"`
	Description     string  `json:"description"`
}

type amendTransactionRequest struct {
	Amount          *string `json:"amount"`
	TransactionDate *string `json:"transaction_date"`
	Description     *string `json:"description"`
}

func (s *Server) PostTransaction(c *gin.Context) {
	var req postTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	txDate, err := bodyTime("transaction_date", req.TransactionDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transactionSvc.Post(c.Request.Context(), transactiondomain.PostTransactionRequest{
		Type:            strings.TrimSpace(req.Type),
		PartnerID:       strings.TrimSpace(req.PartnerID),
		Amount:          strings.TrimSpace(req.Amount),
		TransactionDate: txDate,
		DebtID:          strings.TrimSpace(req.DebtID),
		Description:     strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// AmendTransaction replaces a transaction with a corrected copy under a new id.
func (s *Server) AmendTransaction(c *gin.Context) {
	var req amendTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	txDate, err := bodyTime("transaction_date", req.TransactionDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transactionSvc.Amend(c.Request.Context(), transactiondomain.AmendTransactionRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		Amount:          req.Amount,
		TransactionDate: txDate,
		Description:     req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTransaction(c *gin.Context) {
	err := s.transactionSvc.Delete(c.Request.Context(), transactiondomain.DeleteTransactionRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetTransactionByID(c *gin.Context) {
	resp, err := s.transactionSvc.GetByID(c.Request.Context(), transactiondomain.GetTransactionRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		DebtID    string `form:"debt_id"`
		PartnerID string `form:"partner_id"`
		Type      string `form:"type"`
		DateFrom  string `form:"date_from"`
		DateTo    string `form:"date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dateFrom, err := parseQueryTime("date_from", query.DateFrom, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	dateTo, err := parseQueryTime("date_to", query.DateTo, true)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transactionSvc.List(c.Request.Context(), transactiondomain.ListTransactionRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		DebtID:    strings.TrimSpace(query.DebtID),
		PartnerID: strings.TrimSpace(query.PartnerID),
		Type:      strings.TrimSpace(query.Type),
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isTransactionValidationError(err error) bool {
	switch {
	case errors.Is(err, transactiondomain.ErrInvalidID),
		errors.Is(err, transactiondomain.ErrInvalidType),
		errors.Is(err, transactiondomain.ErrInvalidAmount),
		errors.Is(err, transactiondomain.ErrInvalidPartner),
		errors.Is(err, transactiondomain.ErrInvalidDebt),
		errors.Is(err, transactiondomain.ErrInvalidDateRange),
		errors.Is(err, transactiondomain.ErrTypeMismatch):
		return true
	default:
		return false
	}
}
