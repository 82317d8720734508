package service

import (
	"context"
	"testing"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListService(store *fakeStore) ListService {
	return NewListService(store, domain.DefaultListBonusPolicy(), discardLogger())
}

func TestListService_Create(t *testing.T) {
	store := newFakeStore()
	svc := newTestListService(store)
	user := &domain.User{ID: uuid.New(), Name: "Yusuf"}

	list, err := svc.Create(context.Background(), user, domain.CreateListParams{Title: "  Morning  "})
	require.NoError(t, err)
	assert.Equal(t, "Morning", list.Title)
	assert.Equal(t, domain.VisibilityPrivate, list.Visibility)
	assert.Equal(t, user.ID, list.OwnerID)
	assert.Equal(t, "Yusuf", list.OwnerName)
	assert.Empty(t, list.DuaIDs)

	// The base allowance is one list.
	_, err = svc.Create(context.Background(), user, domain.CreateListParams{Title: "Evening"})
	require.Error(t, err)
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))
	assert.EqualValues(t, 1, store.counts[user.ID].Lists)
}

func TestListService_Create_ReferralsRaiseLimit(t *testing.T) {
	store := newFakeStore()
	svc := newTestListService(store)
	user := &domain.User{ID: uuid.New()}
	store.counts[user.ID] = repository.AccountCounts{Referrals: 1}

	for _, title := range []string{"One", "Two"} {
		_, err := svc.Create(context.Background(), user, domain.CreateListParams{Title: title})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), user, domain.CreateListParams{Title: "Three"})
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))
}

func TestListService_Create_Invalid(t *testing.T) {
	svc := newTestListService(newFakeStore())

	_, err := svc.Create(context.Background(), &domain.User{ID: uuid.New()}, domain.CreateListParams{
		Title:      " ",
		Visibility: "friends",
	})
	require.Error(t, err)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "visibility")
}

func TestListService_Get_Visibility(t *testing.T) {
	store := newFakeStore()
	svc := newTestListService(store)
	owner := &domain.User{ID: uuid.New()}
	store.counts[owner.ID] = repository.AccountCounts{PurchasedLists: 5}

	private, err := svc.Create(context.Background(), owner, domain.CreateListParams{Title: "Mine"})
	require.NoError(t, err)
	public, err := svc.Create(context.Background(), owner, domain.CreateListParams{Title: "Ours", Visibility: domain.VisibilityPublic})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), owner, private.ID)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), &domain.User{ID: uuid.New()}, private.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	_, err = svc.Get(context.Background(), nil, private.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	got, err := svc.Get(context.Background(), nil, public.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ours", got.Title)
}

func TestListService_AddDua(t *testing.T) {
	store := newFakeStore()
	svc := newTestListService(store)
	owner := &domain.User{ID: uuid.New()}

	list, err := svc.Create(context.Background(), owner, domain.CreateListParams{Title: "Travel"})
	require.NoError(t, err)

	updated, err := svc.AddDua(context.Background(), owner, list.ID, " dua-17 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"dua-17"}, updated.DuaIDs)

	_, err = svc.AddDua(context.Background(), owner, list.ID, "")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = svc.AddDua(context.Background(), &domain.User{ID: uuid.New()}, list.ID, "dua-18")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestListService_PublicFeed(t *testing.T) {
	store := newFakeStore()
	svc := newTestListService(store)
	owner := &domain.User{ID: uuid.New()}
	store.counts[owner.ID] = repository.AccountCounts{PurchasedLists: 10}
	store.ownerNames[owner.ID] = "Fatimah Zahra"

	for _, title := range []string{"Dua A", "Dua B", "Dua C", "Other"} {
		_, err := svc.Create(context.Background(), owner, domain.CreateListParams{Title: title, Visibility: domain.VisibilityPublic})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), owner, domain.CreateListParams{Title: "Dua Secret"})
	require.NoError(t, err)

	feed, err := svc.PublicFeed(context.Background(), domain.FeedParams{Query: "dua", Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, feed.Lists, 2)
	assert.Equal(t, "Dua A", feed.Lists[0].Title)
	assert.Equal(t, "F*****h Z***a", feed.Lists[0].OwnerName)
	assert.Equal(t, 3, feed.Pagination.Total)
	assert.Equal(t, 2, feed.Pagination.TotalPages)
	assert.True(t, feed.Pagination.HasNext)

	page2, err := svc.PublicFeed(context.Background(), domain.FeedParams{Query: "dua", Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page2.Lists, 1)
	assert.Equal(t, "Dua C", page2.Lists[0].Title)
	assert.False(t, page2.Pagination.HasNext)
}

func TestListService_PublicFeedHugePageStaysInRange(t *testing.T) {
	store := newFakeStore()
	svc := newTestListService(store)

	feed, err := svc.PublicFeed(context.Background(), domain.FeedParams{Page: 50_000_000, PerPage: 50})
	require.NoError(t, err)
	assert.Empty(t, feed.Lists)
	assert.Equal(t, domain.MaxFeedPage, feed.Pagination.CurrentPage)
	assert.Equal(t, int32((domain.MaxFeedPage-1)*50), store.feedOffset)
	assert.Positive(t, store.feedOffset)
}
