package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type createContractRequest struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	ClientID   string  `json:"client_id"`
	TotalValue string  `json:"total_value"`
	SignedAt   *string `json:"signed_at"`
}

type createProjectRequest struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	ContractID string `json:"contract_id"`
	TotalValue string `json:"total_value"`
}

func (s *Server) CreateContract(c *gin.Context) {
	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signedAt, err := bodyTime("signed_at", req.SignedAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.registrySvc.CreateContract(c.Request.Context(), registrydomain.CreateContractRequest{
		Code:       strings.TrimSpace(req.Code),
		Name:       strings.TrimSpace(req.Name),
		ClientID:   strings.TrimSpace(req.ClientID),
		TotalValue: strings.TrimSpace(req.TotalValue),
		SignedAt:   signedAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetContractByID(c *gin.Context) {
	resp, err := s.registrySvc.GetContract(c.Request.Context(), registrydomain.GetRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContracts(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.registrySvc.ListContracts(c.Request.Context(), registrydomain.ListContractRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.registrySvc.CreateProject(c.Request.Context(), registrydomain.CreateProjectRequest{
		Code:       strings.TrimSpace(req.Code),
		Name:       strings.TrimSpace(req.Name),
		ContractID: strings.TrimSpace(req.ContractID),
		TotalValue: strings.TrimSpace(req.TotalValue),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProjectByID(c *gin.Context) {
	resp, err := s.registrySvc.GetProject(c.Request.Context(), registrydomain.GetRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProjects(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ContractID string `form:"contract_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.registrySvc.ListProjects(c.Request.Context(), registrydomain.ListProjectRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		ContractID: strings.TrimSpace(query.ContractID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isRegistryValidationError(err error) bool {
	switch {
	case errors.Is(err, registrydomain.ErrInvalidID),
		errors.Is(err, registrydomain.ErrInvalidParentType),
		errors.Is(err, registrydomain.ErrInvalidCode),
		errors.Is(err, registrydomain.ErrInvalidName),
		errors.Is(err, registrydomain.ErrInvalidTotalValue),
		errors.Is(err, registrydomain.ErrInvalidClient):
		return true
	default:
		return false
	}
}
