// Package service contains the business logic layer.
//
// This file implements prayer lists and the public list feed.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/metrics"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ListService defines operations on prayer lists.
type ListService interface {
	// Create makes a new list if the owner is under their list limit.
	Create(ctx context.Context, user *domain.User, params domain.CreateListParams) (*domain.PrayerList, error)

	// Get returns a list visible to viewer. Private lists are only visible
	// to their owner; viewer may be nil.
	Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.PrayerList, error)

	// AddDua appends a dua to a list owned by user.
	AddDua(ctx context.Context, user *domain.User, listID uuid.UUID, duaID string) (*domain.PrayerList, error)

	// PublicFeed returns a page of public lists, newest first.
	PublicFeed(ctx context.Context, params domain.FeedParams) (*domain.ListFeed, error)
}

// ListStore is the storage used by the list service.
// *repository.Store satisfies it.
type ListStore interface {
	CreateListGuarded(ctx context.Context, arg repository.CreateListParams, guard func(repository.AccountCounts) error) (repository.PrayerList, error)
	GetList(ctx context.Context, id uuid.UUID) (repository.PrayerList, error)
	AppendDuaToList(ctx context.Context, id, ownerID uuid.UUID, duaID string) (repository.PrayerList, error)
	ListPublicLists(ctx context.Context, arg repository.ListPublicListsParams) ([]repository.PublicListRow, error)
	CountPublicLists(ctx context.Context, query string) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type listService struct {
	store  ListStore
	policy domain.ListBonusPolicy
	logger *slog.Logger
}

// NewListService creates a new ListService.
func NewListService(store ListStore, policy domain.ListBonusPolicy, logger *slog.Logger) ListService {
	return &listService{
		store:  store,
		policy: policy,
		logger: logger,
	}
}

func (s *listService) Create(ctx context.Context, user *domain.User, params domain.CreateListParams) (*domain.PrayerList, error) {
	const op = "list.create"

	params.OwnerID = user.ID
	if err := params.Validate(); err != nil {
		return nil, err
	}

	row, err := s.store.CreateListGuarded(ctx, repository.CreateListParams{
		OwnerID:     user.ID,
		Title:       params.Title,
		Description: params.Description,
		Visibility:  string(params.Visibility),
	}, func(counts repository.AccountCounts) error {
		info, err := s.policy.Evaluate(accountFacts(counts, user))
		if err != nil {
			return err
		}
		if !info.CanCreate {
			metrics.QuotaDenials.WithLabelValues("prayer_list").Inc()
			return domain.QuotaExceeded(op, domain.QuotaTypePrayerList, info.Current, info.Limit)
		}
		return nil
	})
	if err != nil {
		var de *domain.Error
		var ve *domain.ValidationError
		if errors.As(err, &de) || errors.As(err, &ve) {
			return nil, err
		}
		return nil, domain.Internal(err, op, "failed to create list")
	}

	metrics.ListsCreated.Inc()
	s.logger.Info("prayer list created", "list_id", row.ID, "user_id", user.ID)

	list := toDomainList(row)
	list.OwnerName = user.DisplayName()
	return list, nil
}

func (s *listService) Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.PrayerList, error) {
	const op = "list.get"

	row, err := s.store.GetList(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(op, "list", id.String())
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load list")
	}

	isOwner := viewer != nil && viewer.ID == row.OwnerID
	if row.Visibility != string(domain.VisibilityPublic) && !isOwner {
		// Hide the existence of other users' private lists.
		return nil, domain.NotFound(op, "list", id.String())
	}
	return toDomainList(row), nil
}

func (s *listService) AddDua(ctx context.Context, user *domain.User, listID uuid.UUID, duaID string) (*domain.PrayerList, error) {
	const op = "list.add_dua"

	duaID = strings.TrimSpace(duaID)
	if duaID == "" {
		return nil, domain.NewValidationError(op, "dua_id", "Dua is required")
	}

	row, err := s.store.AppendDuaToList(ctx, listID, user.ID, duaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(op, "list", listID.String())
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to add dua")
	}
	return toDomainList(row), nil
}

func (s *listService) PublicFeed(ctx context.Context, params domain.FeedParams) (*domain.ListFeed, error) {
	const op = "list.public_feed"

	params.Normalize()

	total, err := s.store.CountPublicLists(ctx, params.Query)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count public lists")
	}

	rows, err := s.store.ListPublicLists(ctx, repository.ListPublicListsParams{
		Query:  params.Query,
		Limit:  int32(params.PerPage),
		Offset: int32(params.Offset()),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list public lists")
	}

	lists := make([]domain.PrayerList, 0, len(rows))
	for _, row := range rows {
		list := toDomainList(row.PrayerList)
		list.OwnerName = domain.CensorName(row.OwnerName)
		lists = append(lists, *list)
	}

	return &domain.ListFeed{
		Lists:      lists,
		Pagination: domain.NewPagination(params.Page, params.PerPage, int(total)),
	}, nil
}

func toDomainList(row repository.PrayerList) *domain.PrayerList {
	duaIDs := row.DuaIds
	if duaIDs == nil {
		duaIDs = []string{}
	}
	return &domain.PrayerList{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		Description: row.Description,
		Visibility:  domain.Visibility(row.Visibility),
		DuaIDs:      duaIDs,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
