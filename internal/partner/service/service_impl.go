package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/partner/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("partner.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePartnerRequest) (domain.Partner, error) {
	kind, ok := domain.ParseKind(req.Kind)
	if !ok {
		return domain.Partner{}, domain.ErrInvalidKind
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Partner{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Partner{}, domain.ErrInvalidEmail
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	now := s.clock.Now()
	partner := domain.Partner{
		ID:        s.genID.Generate(),
		Kind:      kind,
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     email,
		Address:   strings.TrimSpace(req.Address),
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &partner); err != nil {
		return domain.Partner{}, err
	}

	s.log.Info("partner created", zap.String("partner_id", partner.ID.String()), zap.String("kind", string(kind)))
	return partner, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePartnerRequest) (domain.Partner, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Partner{}, err
	}

	partner, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Partner{}, err
	}
	if partner == nil {
		return domain.Partner{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Partner{}, domain.ErrInvalidName
		}
		partner.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && !strings.Contains(email, "@") {
			return domain.Partner{}, domain.ErrInvalidEmail
		}
		partner.Email = email
	}
	if req.Phone != nil {
		partner.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		partner.Address = strings.TrimSpace(*req.Address)
	}
	if req.Metadata != nil {
		partner.Metadata = datatypes.JSONMap(req.Metadata)
	}
	partner.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, partner); err != nil {
		return domain.Partner{}, err
	}
	return *partner, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeletePartnerRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	partner, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if partner == nil {
		return domain.ErrNotFound
	}

	refs, err := s.repo.CountReferences(ctx, s.db, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return domain.ErrPartnerInUse
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return err
	}
	s.log.Info("partner deleted", zap.String("partner_id", id.String()))
	return nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPartnerRequest) (domain.Partner, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Partner{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Partner{}, err
	}
	if item == nil {
		return domain.Partner{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPartnerRequest) (domain.ListPartnerResponse, error) {
	filter := domain.ListPartnerFilter{
		Name: strings.ToLower(strings.TrimSpace(req.Name)),
	}
	if strings.TrimSpace(req.Kind) != "" {
		kind, ok := domain.ParseKind(req.Kind)
		if !ok {
			return domain.ListPartnerResponse{}, domain.ErrInvalidKind
		}
		filter.Kind = kind
	}

	pageSize := pagination.NormalizePageSize(int(req.PageSize))

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListPartnerResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(p *domain.Partner) string {
		return pagination.CursorFor(p.ID.String(), p.CreatedAt)
	})

	partners := make([]domain.Partner, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		partners = append(partners, *item)
	}

	return domain.ListPartnerResponse{PageInfo: pageInfo, Partners: partners}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
