package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/backoffice/internal/observability/context"
	"go.uber.org/zap"
)

func (s *Server) CheckLedger(c *gin.Context) {
	report, err := s.ledgerSvc.Check(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) RepairLedger(c *gin.Context) {
	ctx := c.Request.Context()
	actorID, role := obscontext.ActorFromContext(ctx)
	s.log.Info("ledger repair requested",
		zap.String("request_id", obscontext.RequestIDFromContext(ctx)),
		zap.String("actor_id", actorID),
		zap.String("role", role),
	)

	report, err := s.ledgerSvc.Repair(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
