package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/backoffice/internal/authorization"
	"github.com/smallbiznis/backoffice/internal/config"
	costdomain "github.com/smallbiznis/backoffice/internal/cost/domain"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	ledgerviewdomain "github.com/smallbiznis/backoffice/internal/ledgerview/domain"
	"github.com/smallbiznis/backoffice/internal/observability"
	obsmiddleware "github.com/smallbiznis/backoffice/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/backoffice/internal/observability/metrics"
	obstracing "github.com/smallbiznis/backoffice/internal/observability/tracing"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	transactiondomain "github.com/smallbiznis/backoffice/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	authzSvc       authorization.Service
	partnerSvc     partnerdomain.Service
	registrySvc    registrydomain.Service
	costSvc        costdomain.Service
	debtSvc        debtdomain.Service
	transactionSvc transactiondomain.Service
	viewSvc        ledgerviewdomain.Service
	ledgerSvc      ledgerdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	AuthzSvc       authorization.Service
	PartnerSvc     partnerdomain.Service
	RegistrySvc    registrydomain.Service
	CostSvc        costdomain.Service
	DebtSvc        debtdomain.Service
	TransactionSvc transactiondomain.Service
	ViewSvc        ledgerviewdomain.Service
	LedgerSvc      ledgerdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http"),
		authzSvc:       p.AuthzSvc,
		partnerSvc:     p.PartnerSvc,
		registrySvc:    p.RegistrySvc,
		costSvc:        p.CostSvc,
		debtSvc:        p.DebtSvc,
		transactionSvc: p.TransactionSvc,
		viewSvc:        p.ViewSvc,
		ledgerSvc:      p.LedgerSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(Actor())

	// -------- Partners --------
	api.GET("/partners", s.authorize(authorization.ObjectPartner, authorization.ActionView), s.ListPartners)
	api.POST("/partners", s.authorize(authorization.ObjectPartner, authorization.ActionCreate), s.CreatePartner)
	api.GET("/partners/:id", s.authorize(authorization.ObjectPartner, authorization.ActionView), s.GetPartnerByID)
	api.PATCH("/partners/:id", s.authorize(authorization.ObjectPartner, authorization.ActionUpdate), s.UpdatePartner)
	api.DELETE("/partners/:id", s.authorize(authorization.ObjectPartner, authorization.ActionDelete), s.DeletePartner)
	api.GET("/partners/:id/balance", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetPartnerBalance)

	// -------- Contracts & Projects --------
	api.GET("/contracts", s.authorize(authorization.ObjectContract, authorization.ActionView), s.ListContracts)
	api.POST("/contracts", s.authorize(authorization.ObjectContract, authorization.ActionCreate), s.CreateContract)
	api.GET("/contracts/:id", s.authorize(authorization.ObjectContract, authorization.ActionView), s.GetContractByID)
	api.GET("/projects", s.authorize(authorization.ObjectProject, authorization.ActionView), s.ListProjects)
	api.POST("/projects", s.authorize(authorization.ObjectProject, authorization.ActionCreate), s.CreateProject)
	api.GET("/projects/:id", s.authorize(authorization.ObjectProject, authorization.ActionView), s.GetProjectByID)

	// -------- Reports --------
	for _, parent := range []registrydomain.ParentType{registrydomain.ParentContract, registrydomain.ParentProject} {
		base := "/" + string(parent) + "s/:id"
		api.GET(base+"/cost-summary", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetCostSummary(parent))
		api.GET(base+"/profitability", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetProfitability(parent))
	}

	// -------- Costs --------
	api.GET("/cost-categories", s.authorize(authorization.ObjectCost, authorization.ActionView), s.ListCostCategories)
	api.GET("/costs", s.authorize(authorization.ObjectCost, authorization.ActionView), s.ListCosts)
	api.POST("/costs", s.authorize(authorization.ObjectCost, authorization.ActionCreate), s.CreateCost)
	api.GET("/costs/:id", s.authorize(authorization.ObjectCost, authorization.ActionView), s.GetCostByID)
	api.PUT("/costs/:id", s.authorize(authorization.ObjectCost, authorization.ActionUpdate), s.UpdateCost)
	api.DELETE("/costs/:id", s.authorize(authorization.ObjectCost, authorization.ActionDelete), s.DeleteCost)

	// -------- Debts --------
	api.GET("/debts", s.authorize(authorization.ObjectDebt, authorization.ActionView), s.ListDebts)
	api.POST("/debts", s.authorize(authorization.ObjectDebt, authorization.ActionCreate), s.CreateDebt)
	api.GET("/debts/:id", s.authorize(authorization.ObjectDebt, authorization.ActionView), s.GetDebtByID)
	api.PATCH("/debts/:id", s.authorize(authorization.ObjectDebt, authorization.ActionUpdate), s.UpdateDebt)
	api.DELETE("/debts/:id", s.authorize(authorization.ObjectDebt, authorization.ActionDelete), s.DeleteDebt)
	api.GET("/debts/:id/progress", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetDebtProgress)

	// -------- Transactions --------
	api.GET("/transactions", s.authorize(authorization.ObjectTransaction, authorization.ActionView), s.ListTransactions)
	api.POST("/transactions", s.authorize(authorization.ObjectTransaction, authorization.ActionCreate), s.PostTransaction)
	api.GET("/transactions/:id", s.authorize(authorization.ObjectTransaction, authorization.ActionView), s.GetTransactionByID)
	api.POST("/transactions/:id/amend", s.authorize(authorization.ObjectTransaction, authorization.ActionUpdate), s.AmendTransaction)
	api.DELETE("/transactions/:id", s.authorize(authorization.ObjectTransaction, authorization.ActionDelete), s.DeleteTransaction)

	// -------- Ledger --------
	api.GET("/ledger/check", s.authorize(authorization.ObjectLedger, authorization.ActionLedgerCheck), s.CheckLedger)
	api.POST("/ledger/repair", s.authorize(authorization.ObjectLedger, authorization.ActionLedgerRepair), s.RepairLedger)
}
