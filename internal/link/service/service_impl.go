package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/linkpulse/linkpulse/internal/cache"
	"github.com/linkpulse/linkpulse/internal/clock"
	"github.com/linkpulse/linkpulse/internal/link/domain"
	"github.com/linkpulse/linkpulse/pkg/db"
	"github.com/linkpulse/linkpulse/pkg/db/pagination"
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
	Cache cache.LinkResolverCache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	cache cache.LinkResolverCache
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("link.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		cache: p.Cache,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateLinkRequest) (domain.Link, error) {
	destination := strings.TrimSpace(req.DestinationURL)
	if destination == "" {
		return domain.Link{}, domain.ErrInvalidDestination
	}

	code := strings.TrimSpace(req.ShortCode)
	if code == "" && strings.TrimSpace(req.Title) != "" {
		code = slug.Make(req.Title)
	}
	if code == "" {
		return domain.Link{}, domain.ErrInvalidShortCode
	}

	now := s.clock.Now()
	link := domain.Link{
		ID:             s.genID.Generate(),
		ShortCode:      code,
		DestinationURL: destination,
		Title:          strings.TrimSpace(req.Title),
		Category:       strings.TrimSpace(req.Category),
		Platform:       strings.TrimSpace(req.Platform),
		CommissionRate: req.CommissionRate,
		IsActive:       true,
		ExpiresAt:      req.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Metadata != nil {
		link.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, &link); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Link{}, domain.ErrCodeTaken
		}
		return domain.Link{}, err
	}

	return link, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Link, error) {
	linkID, err := s.parseID(id)
	if err != nil {
		return domain.Link{}, err
	}

	link, err := s.repo.FindByID(ctx, s.db, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if link == nil {
		return domain.Link{}, domain.ErrNotFound
	}
	return *link, nil
}

func (s *Service) List(ctx context.Context, req domain.ListLinkRequest) (domain.ListLinkResponse, error) {
	filter := domain.ListLinkFilter{
		Category: strings.TrimSpace(req.Category),
		Platform: strings.TrimSpace(req.Platform),
		Active:   req.Active,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListLinkResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(link *domain.Link) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        link.ID.String(),
			CreatedAt: link.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	links := make([]domain.Link, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		links = append(links, *item)
	}

	resp := domain.ListLinkResponse{Links: links}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateLinkRequest) (domain.Link, error) {
	linkID, err := s.parseID(req.ID)
	if err != nil {
		return domain.Link{}, err
	}

	link, err := s.repo.FindByID(ctx, s.db, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if link == nil {
		return domain.Link{}, domain.ErrNotFound
	}
	oldCode := link.ShortCode

	if req.ShortCode != nil {
		code := strings.TrimSpace(*req.ShortCode)
		if code == "" {
			return domain.Link{}, domain.ErrInvalidShortCode
		}
		link.ShortCode = code
	}
	if req.DestinationURL != nil {
		destination := strings.TrimSpace(*req.DestinationURL)
		if destination == "" {
			return domain.Link{}, domain.ErrInvalidDestination
		}
		link.DestinationURL = destination
	}
	if req.Title != nil {
		link.Title = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		link.Category = strings.TrimSpace(*req.Category)
	}
	if req.Platform != nil {
		link.Platform = strings.TrimSpace(*req.Platform)
	}
	if req.CommissionRate != nil {
		link.CommissionRate = req.CommissionRate
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}
	if req.ExpiresAt != nil {
		link.ExpiresAt = req.ExpiresAt
	}
	if req.Metadata != nil {
		link.Metadata = datatypes.JSONMap(req.Metadata)
	}
	link.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, link); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Link{}, domain.ErrCodeTaken
		}
		return domain.Link{}, err
	}

	s.invalidate(oldCode)
	if link.ShortCode != oldCode {
		s.invalidate(link.ShortCode)
	}
	return *link, nil
}

// Delete removes the link together with its click and daily history.
// The cascade is explicit: the storage layer never does it silently.
func (s *Service) Delete(ctx context.Context, id string) error {
	linkID, err := s.parseID(id)
	if err != nil {
		return err
	}

	link, err := s.repo.FindByID(ctx, s.db, linkID)
	if err != nil {
		return err
	}
	if link == nil {
		return domain.ErrNotFound
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.DeleteCascade(ctx, tx, linkID)
	}); err != nil {
		return err
	}

	s.invalidate(link.ShortCode)
	return nil
}

// invalidate drops a short code from the resolver cache so redirects
// see link writes immediately rather than after the cache TTL.
func (s *Service) invalidate(shortCode string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(shortCode)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
