package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	ledgerviewdomain "github.com/smallbiznis/backoffice/internal/ledgerview/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type createDebtRequest struct {
	PartnerID   string  `json:"partner_id"`
	Type        string  `json:"type"`
	TotalAmount string  `json:"total_amount"`
	DueDate     *string `json:"due_date"`
	Notes       string  `json:"notes"`
}

// updateDebtRequest patches a debt. due_date set to an empty string clears it.
type updateDebtRequest struct {
	PartnerID   *string `json:"partner_id"`
	TotalAmount *string `json:"total_amount"`
	DueDate     *string `json:"due_date"`
	Notes       *string `json:"notes"`
}

func (s *Server) CreateDebt(c *gin.Context) {
	var req createDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueDate, err := bodyTime("due_date", req.DueDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.debtSvc.Create(c.Request.Context(), debtdomain.CreateDebtRequest{
		PartnerID:   strings.TrimSpace(req.PartnerID),
		Type:        strings.TrimSpace(req.Type),
		TotalAmount: strings.TrimSpace(req.TotalAmount),
		DueDate:     dueDate,
		Notes:       strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateDebt(c *gin.Context) {
	var req updateDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := debtdomain.UpdateDebtRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		PartnerID:   req.PartnerID,
		TotalAmount: req.TotalAmount,
		Notes:       req.Notes,
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			update.ClearDueDate = true
		} else {
			dueDate, err := bodyTime("due_date", req.DueDate)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			update.DueDate = dueDate
		}
	}

	resp, err := s.debtSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDebt(c *gin.Context) {
	err := s.debtSvc.Delete(c.Request.Context(), debtdomain.DeleteDebtRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetDebtByID(c *gin.Context) {
	resp, err := s.debtSvc.GetByID(c.Request.Context(), debtdomain.GetDebtRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDebts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		PartnerID   string `form:"partner_id"`
		Type        string `form:"type"`
		Derived     string `form:"derived"`
		Outstanding string `form:"outstanding"`
		DueBefore   string `form:"due_before"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	derived, err := parseOptionalBool(query.Derived)
	if err != nil {
		AbortWithError(c, newValidationError("derived", "invalid_derived", "invalid derived"))
		return
	}
	outstanding, err := parseOptionalBool(query.Outstanding)
	if err != nil {
		AbortWithError(c, newValidationError("outstanding", "invalid_outstanding", "invalid outstanding"))
		return
	}
	dueBefore, err := parseQueryTime("due_before", query.DueBefore, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.debtSvc.List(c.Request.Context(), debtdomain.ListDebtRequest{
		PageToken:   query.PageToken,
		PageSize:    int32(query.PageSize),
		PartnerID:   strings.TrimSpace(query.PartnerID),
		Type:        strings.TrimSpace(query.Type),
		Derived:     derived,
		Outstanding: outstanding != nil && *outstanding,
		DueBefore:   dueBefore,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDebtProgress(c *gin.Context) {
	resp, err := s.viewSvc.DebtProgress(c.Request.Context(), ledgerviewdomain.DebtProgressRequest{
		DebtID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isDebtValidationError(err error) bool {
	switch {
	case errors.Is(err, debtdomain.ErrInvalidID),
		errors.Is(err, debtdomain.ErrInvalidType),
		errors.Is(err, debtdomain.ErrInvalidAmount),
		errors.Is(err, debtdomain.ErrInvalidPartner):
		return true
	default:
		return false
	}
}
