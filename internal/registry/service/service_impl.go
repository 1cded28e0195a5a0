package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/config"
	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	"github.com/smallbiznis/backoffice/internal/registry/domain"
	pkgdb "github.com/smallbiznis/backoffice/pkg/db"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	PartnerRepo partnerdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	scale       int32
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	partnerRepo partnerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("registry.service"),
		scale:       p.Cfg.Ledger.CurrencyScale,
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		partnerRepo: p.PartnerRepo,
	}
}

func (s *Service) CreateContract(ctx context.Context, req domain.CreateContractRequest) (domain.Contract, error) {
	code, name, err := validateCodeName(req.Code, req.Name)
	if err != nil {
		return domain.Contract{}, err
	}

	totalValue, err := s.parseTotalValue(req.TotalValue)
	if err != nil {
		return domain.Contract{}, err
	}

	var clientID *snowflake.ID
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.Contract{}, domain.ErrInvalidClient
		}
		client, err := s.partnerRepo.FindByID(ctx, s.db, id)
		if err != nil {
			return domain.Contract{}, err
		}
		if client == nil || client.Kind != partnerdomain.KindClient {
			return domain.Contract{}, domain.ErrInvalidClient
		}
		clientID = &id
	}

	now := s.clock.Now()
	contract := domain.Contract{
		ID:         s.genID.Generate(),
		Code:       code,
		Name:       name,
		ClientID:   clientID,
		TotalValue: totalValue,
		SignedAt:   req.SignedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertContract(ctx, s.db, &contract); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Contract{}, domain.ErrDuplicateCode
		}
		return domain.Contract{}, err
	}
	return contract, nil
}

func (s *Service) CreateProject(ctx context.Context, req domain.CreateProjectRequest) (domain.Project, error) {
	code, name, err := validateCodeName(req.Code, req.Name)
	if err != nil {
		return domain.Project{}, err
	}

	totalValue, err := s.parseTotalValue(req.TotalValue)
	if err != nil {
		return domain.Project{}, err
	}

	var contractID *snowflake.ID
	if raw := strings.TrimSpace(req.ContractID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return domain.Project{}, err
		}
		contract, err := s.repo.FindContractByID(ctx, s.db, id)
		if err != nil {
			return domain.Project{}, err
		}
		if contract == nil {
			return domain.Project{}, domain.ErrParentNotFound
		}
		contractID = &id
	}

	now := s.clock.Now()
	project := domain.Project{
		ID:         s.genID.Generate(),
		Code:       code,
		Name:       name,
		ContractID: contractID,
		TotalValue: totalValue,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertProject(ctx, s.db, &project); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Project{}, domain.ErrDuplicateCode
		}
		return domain.Project{}, err
	}
	return project, nil
}

func (s *Service) GetContract(ctx context.Context, req domain.GetRequest) (domain.Contract, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Contract{}, err
	}
	contract, err := s.repo.FindContractByID(ctx, s.db, id)
	if err != nil {
		return domain.Contract{}, err
	}
	if contract == nil {
		return domain.Contract{}, domain.ErrParentNotFound
	}
	return *contract, nil
}

func (s *Service) GetProject(ctx context.Context, req domain.GetRequest) (domain.Project, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Project{}, err
	}
	project, err := s.repo.FindProjectByID(ctx, s.db, id)
	if err != nil {
		return domain.Project{}, err
	}
	if project == nil {
		return domain.Project{}, domain.ErrParentNotFound
	}
	return *project, nil
}

func (s *Service) ListContracts(ctx context.Context, req domain.ListContractRequest) (domain.ListContractResponse, error) {
	pageSize := pagination.NormalizePageSize(int(req.PageSize))
	items, err := s.repo.ListContracts(ctx, s.db, pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize})
	if err != nil {
		return domain.ListContractResponse{}, err
	}
	items, pageInfo := pagination.Page(items, pageSize, func(c *domain.Contract) string {
		return pagination.CursorFor(c.ID.String(), c.CreatedAt)
	})

	contracts := make([]domain.Contract, 0, len(items))
	for _, item := range items {
		contracts = append(contracts, *item)
	}
	return domain.ListContractResponse{PageInfo: pageInfo, Contracts: contracts}, nil
}

func (s *Service) ListProjects(ctx context.Context, req domain.ListProjectRequest) (domain.ListProjectResponse, error) {
	var contractID *snowflake.ID
	if raw := strings.TrimSpace(req.ContractID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return domain.ListProjectResponse{}, err
		}
		contractID = &id
	}

	pageSize := pagination.NormalizePageSize(int(req.PageSize))
	items, err := s.repo.ListProjects(ctx, s.db, contractID, pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize})
	if err != nil {
		return domain.ListProjectResponse{}, err
	}
	items, pageInfo := pagination.Page(items, pageSize, func(p *domain.Project) string {
		return pagination.CursorFor(p.ID.String(), p.CreatedAt)
	})

	projects := make([]domain.Project, 0, len(items))
	for _, item := range items {
		projects = append(projects, *item)
	}
	return domain.ListProjectResponse{PageInfo: pageInfo, Projects: projects}, nil
}

// GetTotalValue returns the contracted value of the parent in minor units.
func (s *Service) GetTotalValue(ctx context.Context, ref domain.ParentRef) (int64, error) {
	switch ref.Type {
	case domain.ParentContract:
		contract, err := s.repo.FindContractByID(ctx, s.db, ref.ID)
		if err != nil {
			return 0, err
		}
		if contract == nil {
			return 0, domain.ErrParentNotFound
		}
		return contract.TotalValue, nil
	case domain.ParentProject:
		project, err := s.repo.FindProjectByID(ctx, s.db, ref.ID)
		if err != nil {
			return 0, err
		}
		if project == nil {
			return 0, domain.ErrParentNotFound
		}
		return project.TotalValue, nil
	default:
		return 0, domain.ErrInvalidParentType
	}
}

func (s *Service) GetName(ctx context.Context, ref domain.ParentRef) (string, error) {
	switch ref.Type {
	case domain.ParentContract:
		contract, err := s.repo.FindContractByID(ctx, s.db, ref.ID)
		if err != nil {
			return "", err
		}
		if contract == nil {
			return "", domain.ErrParentNotFound
		}
		return contract.Name, nil
	case domain.ParentProject:
		project, err := s.repo.FindProjectByID(ctx, s.db, ref.ID)
		if err != nil {
			return "", err
		}
		if project == nil {
			return "", domain.ErrParentNotFound
		}
		return project.Name, nil
	default:
		return "", domain.ErrInvalidParentType
	}
}

func (s *Service) parseTotalValue(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	value, err := ledgerdomain.ParseAmount(raw, s.scale)
	if err != nil {
		return 0, domain.ErrInvalidTotalValue
	}
	return value, nil
}

func validateCodeName(code, name string) (string, string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", "", domain.ErrInvalidCode
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", domain.ErrInvalidName
	}
	return code, name, nil
}


func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
