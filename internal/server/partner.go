package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerviewdomain "github.com/smallbiznis/backoffice/internal/ledgerview/domain"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type createPartnerRequest struct {
	Kind     string         `json:"kind"`
	Name     string         `json:"name"`
	Phone    string         `json:"phone"`
	Email    string         `json:"email"`
	Address  string         `json:"address"`
	Metadata map[string]any `json:"metadata"`
}

type updatePartnerRequest struct {
	Name     *string        `json:"name"`
	Phone    *string        `json:"phone"`
	Email    *string        `json:"email"`
	Address  *string        `json:"address"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) CreatePartner(c *gin.Context) {
	var req createPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.partnerSvc.Create(c.Request.Context(), partnerdomain.CreatePartnerRequest{
		Kind:     strings.TrimSpace(req.Kind),
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Address:  strings.TrimSpace(req.Address),
		Metadata: req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePartner(c *gin.Context) {
	var req updatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.partnerSvc.Update(c.Request.Context(), partnerdomain.UpdatePartnerRequest{
		ID:       strings.TrimSpace(c.Param("id")),
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		Metadata: req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePartner(c *gin.Context) {
	err := s.partnerSvc.Delete(c.Request.Context(), partnerdomain.DeletePartnerRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetPartnerByID(c *gin.Context) {
	resp, err := s.partnerSvc.GetByID(c.Request.Context(), partnerdomain.GetPartnerRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPartners(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Kind string `form:"kind"`
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.partnerSvc.List(c.Request.Context(), partnerdomain.ListPartnerRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Kind:      strings.TrimSpace(query.Kind),
		Name:      strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPartnerBalance(c *gin.Context) {
	resp, err := s.viewSvc.PartnerBalance(c.Request.Context(), ledgerviewdomain.PartnerBalanceRequest{
		PartnerID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPartnerValidationError(err error) bool {
	switch {
	case errors.Is(err, partnerdomain.ErrInvalidID),
		errors.Is(err, partnerdomain.ErrInvalidKind),
		errors.Is(err, partnerdomain.ErrInvalidName),
		errors.Is(err, partnerdomain.ErrInvalidEmail):
		return true
	default:
		return false
	}
}
