package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	costdomain "github.com/smallbiznis/backoffice/internal/cost/domain"
	ledgerviewdomain "github.com/smallbiznis/backoffice/internal/ledgerview/domain"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type createCostRequest struct {
	ParentType  string `json:"parent_type"`
	ParentID    string `json:"parent_id"`
	Category    string `json:"category"`
	SupplierID  string `json:"supplier_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// updateCostRequest replaces every editable field. An empty supplier_id
// detaches the supplier and drops its derived debt.
type updateCostRequest struct {
	Category    string `json:"category"`
	SupplierID  string `json:"supplier_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) CreateCost(c *gin.Context) {
	var req createCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costSvc.Create(c.Request.Context(), costdomain.CreateCostRequest{
		ParentType:  strings.TrimSpace(req.ParentType),
		ParentID:    strings.TrimSpace(req.ParentID),
		Category:    strings.TrimSpace(req.Category),
		SupplierID:  strings.TrimSpace(req.SupplierID),
		Amount:      strings.TrimSpace(req.Amount),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCost(c *gin.Context) {
	var req updateCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costSvc.Update(c.Request.Context(), costdomain.UpdateCostRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		Category:    strings.TrimSpace(req.Category),
		SupplierID:  strings.TrimSpace(req.SupplierID),
		Amount:      strings.TrimSpace(req.Amount),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCost(c *gin.Context) {
	err := s.costSvc.Delete(c.Request.Context(), costdomain.DeleteCostRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetCostByID(c *gin.Context) {
	resp, err := s.costSvc.GetByID(c.Request.Context(), costdomain.GetCostRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCosts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ParentType string `form:"parent_type"`
		ParentID   string `form:"parent_id"`
		SupplierID string `form:"supplier_id"`
		Category   string `form:"category"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costSvc.List(c.Request.Context(), costdomain.ListCostRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		ParentType: strings.TrimSpace(query.ParentType),
		ParentID:   strings.TrimSpace(query.ParentID),
		SupplierID: strings.TrimSpace(query.SupplierID),
		Category:   strings.TrimSpace(query.Category),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCostCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.costSvc.Categories()})
}

func (s *Server) GetCostSummary(parent registrydomain.ParentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.viewSvc.CostSummary(c.Request.Context(), ledgerviewdomain.ParentRequest{
			ParentType: string(parent),
			ParentID:   strings.TrimSpace(c.Param("id")),
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

func (s *Server) GetProfitability(parent registrydomain.ParentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.viewSvc.Profitability(c.Request.Context(), ledgerviewdomain.ParentRequest{
			ParentType: string(parent),
			ParentID:   strings.TrimSpace(c.Param("id")),
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

func isCostValidationError(err error) bool {
	switch {
	case errors.Is(err, costdomain.ErrInvalidID),
		errors.Is(err, costdomain.ErrInvalidParentType),
		errors.Is(err, costdomain.ErrInvalidParentID),
		errors.Is(err, costdomain.ErrInvalidCategory),
		errors.Is(err, costdomain.ErrInvalidAmount),
		errors.Is(err, costdomain.ErrInvalidSupplier):
		return true
	default:
		return false
	}
}
