package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/getdoa/getdoa/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory stand-in for *repository.Store.
type fakeStore struct {
	mu sync.Mutex

	counts      map[uuid.UUID]repository.AccountCounts
	generations map[uuid.UUID]repository.ImageGeneration
	codes       map[string]repository.ReferralCode
	referred    map[uuid.UUID]bool
	lists       map[uuid.UUID]repository.PrayerList
	ownerNames  map[uuid.UUID]string

	countsErr  error
	reserveErr error
	released   int
	feedOffset int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:      make(map[uuid.UUID]repository.AccountCounts),
		generations: make(map[uuid.UUID]repository.ImageGeneration),
		codes:       make(map[string]repository.ReferralCode),
		referred:    make(map[uuid.UUID]bool),
		lists:       make(map[uuid.UUID]repository.PrayerList),
		ownerNames:  make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) GetAccountCounts(_ context.Context, userID uuid.UUID) (repository.AccountCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countsErr != nil {
		return repository.AccountCounts{}, f.countsErr
	}
	return f.counts[userID], nil
}

func (f *fakeStore) GetImageGeneration(_ context.Context, userID uuid.UUID) (repository.ImageGeneration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.generations[userID]
	if !ok {
		return repository.ImageGeneration{}, sql.ErrNoRows
	}
	return g, nil
}

// ReserveImageGeneration mirrors the conditional upsert.
func (f *fakeStore) ReserveImageGeneration(_ context.Context, arg repository.ReserveImageGenerationParams) (repository.ImageGeneration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return repository.ImageGeneration{}, f.reserveErr
	}
	g, ok := f.generations[arg.UserID]
	if !ok {
		g = repository.ImageGeneration{UserID: arg.UserID}
	}
	stale := !g.LastGeneratedAt.Valid || g.LastGeneratedAt.Time.Before(arg.WindowStart)
	if ok && !stale && g.GenerationsToday >= arg.DailyLimit {
		return repository.ImageGeneration{}, sql.ErrNoRows
	}
	if stale {
		g.GenerationsToday = 1
	} else {
		g.GenerationsToday++
	}
	g.TotalGenerations++
	g.LastGeneratedAt = sql.NullTime{Time: arg.GeneratedAt, Valid: true}
	f.generations[arg.UserID] = g
	return g, nil
}

func (f *fakeStore) ReleaseImageGeneration(_ context.Context, userID uuid.UUID, windowStart time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	g, ok := f.generations[userID]
	if !ok || g.LastGeneratedAt.Time.Before(windowStart) {
		return nil
	}
	g.GenerationsToday = max(g.GenerationsToday-1, 0)
	g.TotalGenerations = max(g.TotalGenerations-1, 0)
	f.generations[userID] = g
	return nil
}

func (f *fakeStore) GetReferralCodeByUser(_ context.Context, userID uuid.UUID) (repository.ReferralCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.UserID == userID {
			return c, nil
		}
	}
	return repository.ReferralCode{}, sql.ErrNoRows
}

func (f *fakeStore) GetReferralCode(_ context.Context, code string) (repository.ReferralCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[code]
	if !ok {
		return repository.ReferralCode{}, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) CreateReferralCode(_ context.Context, arg repository.CreateReferralCodeParams) (repository.ReferralCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.codes[arg.Code]; ok {
		return repository.ReferralCode{}, &pgconn.PgError{Code: "23505"}
	}
	c := repository.ReferralCode{
		Code:      arg.Code,
		UserID:    arg.UserID,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: time.Now(),
	}
	f.codes[arg.Code] = c
	return c, nil
}

func (f *fakeStore) RedeemReferral(_ context.Context, arg repository.CreateReferralParams) (repository.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.referred[arg.ReferredID] {
		return repository.Referral{}, repository.ErrAlreadyReferred
	}
	f.referred[arg.ReferredID] = true
	c := f.counts[arg.ReferrerID]
	c.Referrals++
	f.counts[arg.ReferrerID] = c
	return repository.Referral{
		ID:         uuid.New(),
		ReferrerID: arg.ReferrerID,
		ReferredID: arg.ReferredID,
		Code:       arg.Code,
		CreatedAt:  time.Now(),
	}, nil
}

func (f *fakeStore) CreateListGuarded(_ context.Context, arg repository.CreateListParams, guard func(repository.AccountCounts) error) (repository.PrayerList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := guard(f.counts[arg.OwnerID]); err != nil {
		return repository.PrayerList{}, err
	}
	now := time.Now()
	row := repository.PrayerList{
		ID:          uuid.New(),
		OwnerID:     arg.OwnerID,
		Title:       arg.Title,
		Description: arg.Description,
		Visibility:  arg.Visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.lists[row.ID] = row
	c := f.counts[arg.OwnerID]
	c.Lists++
	f.counts[arg.OwnerID] = c
	return row, nil
}

func (f *fakeStore) GetList(_ context.Context, id uuid.UUID) (repository.PrayerList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.lists[id]
	if !ok {
		return repository.PrayerList{}, sql.ErrNoRows
	}
	return row, nil
}

func (f *fakeStore) AppendDuaToList(_ context.Context, id, ownerID uuid.UUID, duaID string) (repository.PrayerList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.lists[id]
	if !ok || row.OwnerID != ownerID {
		return repository.PrayerList{}, sql.ErrNoRows
	}
	row.DuaIds = append(row.DuaIds, duaID)
	f.lists[id] = row
	return row, nil
}

func (f *fakeStore) publicMatching(query string) []repository.PrayerList {
	var out []repository.PrayerList
	for _, row := range f.lists {
		if row.Visibility != "public" {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(row.Title), strings.ToLower(query)) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (f *fakeStore) ListPublicLists(_ context.Context, arg repository.ListPublicListsParams) ([]repository.PublicListRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedOffset = arg.Offset
	all := f.publicMatching(arg.Query)
	start := min(int(arg.Offset), len(all))
	end := min(start+int(arg.Limit), len(all))
	rows := make([]repository.PublicListRow, 0, end-start)
	for _, row := range all[start:end] {
		rows = append(rows, repository.PublicListRow{PrayerList: row, OwnerName: f.ownerNames[row.OwnerID]})
	}
	return rows, nil
}

func (f *fakeStore) CountPublicLists(_ context.Context, query string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.publicMatching(query))), nil
}

var errBoom = errors.New("boom")
