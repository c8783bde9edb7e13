package listing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/notification"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotificationService is a mock type for notification.Service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) CreateNotification(ctx context.Context, userID string, notifType notification.NotificationType, message string, relatedListingID *uuid.UUID) (*notification.Notification, error) {
	args := m.Called(ctx, userID, notifType, message, relatedListingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationService) NotifyListing(ctx context.Context, userID string, listingID uuid.UUID, notifType notification.NotificationType, title, detail string) error {
	args := m.Called(ctx, userID, listingID, notifType, title, detail)
	return args.Error(0)
}

func (m *MockNotificationService) GetNotificationsForUser(ctx context.Context, userID string, filter notification.ListFilter, page, pageSize int) ([]notification.Notification, *common.Pagination, error) {
	args := m.Called(ctx, userID, filter, page, pageSize)
	return nil, nil, args.Error(2)
}

func (m *MockNotificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID string) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *MockNotificationService) MarkAllUserNotificationsAsRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// recordingIndexer remembers index calls.
type recordingIndexer struct {
	mu      sync.Mutex
	indexed []uuid.UUID
	deleted []uuid.UUID
	err     error
}

func (r *recordingIndexer) Index(_ context.Context, l *Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, l.ID)
	return r.err
}

func (r *recordingIndexer) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return r.err
}

type serviceFixture struct {
	repo     Repository
	notifier *MockNotificationService
	indexer  *recordingIndexer
	svc      *ServiceImplementation
}

func newServiceFixture(t *testing.T) *serviceFixture {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	notifier := new(MockNotificationService)
	indexer := &recordingIndexer{}
	svc := NewService(repo, notifier, indexer, zap.NewNop())
	return &serviceFixture{repo: repo, notifier: notifier, indexer: indexer, svc: svc}
}

func (f *serviceFixture) seed(t *testing.T, userID string, status ListingStatus) *Listing {
	l := newListing(userID, status)
	require.NoError(t, f.repo.CreateBase(context.Background(), l))
	require.NoError(t, f.repo.AssignSlug(context.Background(), l.ID, GenerateSlug(l.Title, l.ID)))
	return l
}

func TestService_GetBySlugHidesNonPublicListings(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	tests := []struct {
		status  ListingStatus
		visible bool
	}{
		{StatusPending, false},
		{StatusRejected, false},
		{StatusApproved, true},
		{StatusSold, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			l := f.seed(t, "uid-1", tt.status)
			got, err := f.svc.GetBySlug(ctx, GenerateSlug(l.Title, l.ID))
			if tt.visible {
				require.NoError(t, err)
				assert.Equal(t, l.ID, got.ID)
				return
			}
			assert.True(t, common.HasCode(err, common.ErrNotFound))
		})
	}
}

func TestService_ApproveNotifiesAndIndexes(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	l := f.seed(t, "uid-1", StatusPending)

	f.notifier.On("NotifyListing", mock.Anything, "uid-1", l.ID, notification.ListingApproved, l.Title, "").Return(nil).Once()

	got, err := f.svc.Approve(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, []uuid.UUID{l.ID}, f.indexer.indexed)
	f.notifier.AssertExpectations(t)

	_, err = f.svc.Approve(ctx, l.ID)
	assert.True(t, common.HasCode(err, common.ErrConflict), "approved listings cannot be approved again")
}

// slugFailingRepo refuses every slug assignment.
type slugFailingRepo struct {
	Repository
}

func (r *slugFailingRepo) AssignSlug(context.Context, uuid.UUID, string) error {
	return errors.New("connection reset")
}

func TestService_ApproveAssignsMissingSlug(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	l := newListing("uid-1", StatusPending)
	require.NoError(t, f.repo.CreateBase(ctx, l))

	f.notifier.On("NotifyListing", mock.Anything, "uid-1", l.ID, notification.ListingApproved, l.Title, "").Return(nil).Once()

	got, err := f.svc.Approve(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Slug)
	assert.Equal(t, GenerateSlug(l.Title, l.ID), *got.Slug)

	public, err := f.svc.GetBySlug(ctx, *got.Slug)
	require.NoError(t, err)
	assert.Equal(t, l.ID, public.ID)
}

func TestService_ApproveRefusedWithoutSlug(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	l := newListing("uid-1", StatusPending)
	require.NoError(t, f.repo.CreateBase(ctx, l))

	svc := NewService(&slugFailingRepo{Repository: f.repo}, f.notifier, f.indexer, zap.NewNop())
	_, err := svc.Approve(ctx, l.ID)
	assert.True(t, common.HasCode(err, common.ErrConflict))

	stored, err := f.repo.FindByID(ctx, l.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Empty(t, f.indexer.indexed)
	f.notifier.AssertNotCalled(t, "NotifyListing", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_RejectRequiresReasonAndRemovesFromIndex(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	l := f.seed(t, "uid-1", StatusPending)

	_, err := f.svc.Reject(ctx, l.ID, "   ")
	assert.True(t, common.HasCode(err, common.ErrBadRequest))

	f.notifier.On("NotifyListing", mock.Anything, "uid-1", l.ID, notification.ListingRejected, l.Title, "Photos are missing").Return(errors.New("smtp down")).Once()

	got, err := f.svc.Reject(ctx, l.ID, "Photos are missing")
	require.NoError(t, err, "notification failures do not undo moderation")
	assert.Equal(t, StatusRejected, got.Status)
	assert.Equal(t, []uuid.UUID{l.ID}, f.indexer.deleted)
	f.notifier.AssertExpectations(t)
}

func TestService_MarkSold(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	pending := f.seed(t, "uid-1", StatusPending)
	_, err := f.svc.MarkSold(ctx, pending.ID, "uid-1", nil, nil)
	assert.True(t, common.HasCode(err, common.ErrConflict))

	approved := f.seed(t, "uid-1", StatusApproved)
	_, err = f.svc.MarkSold(ctx, approved.ID, "uid-2", nil, nil)
	assert.True(t, common.HasCode(err, common.ErrNotFound), "other sellers cannot see the listing")

	bad := -10.0
	_, err = f.svc.MarkSold(ctx, approved.ID, "uid-1", &bad, nil)
	assert.True(t, common.HasCode(err, common.ErrBadRequest))

	f.notifier.On("NotifyListing", mock.Anything, "uid-1", approved.ID, notification.ListingSold, approved.Title, "").Return(nil).Once()
	price := 390000.0
	got, err := f.svc.MarkSold(ctx, approved.ID, "uid-1", &price, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSold, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, fixed.Equal(*got.ClosedAt))
	assert.Equal(t, []uuid.UUID{approved.ID}, f.indexer.deleted)

	stored, err := f.repo.FindByID(ctx, approved.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusSold, stored.Status)
	require.NotNil(t, stored.SoldPrice)
	assert.InDelta(t, 390000.0, *stored.SoldPrice, 0.001)
}

func TestService_SweepIncomplete(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	l := newListing("uid-1", StatusPending)
	l.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, f.repo.CreateBase(ctx, l))

	flagged, err := f.svc.SweepIncomplete(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, flagged)

	stored, err := f.repo.FindByID(ctx, l.ID, false)
	require.NoError(t, err)
	assert.True(t, stored.NeedsAttention)

	flagged, err = f.svc.SweepIncomplete(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, flagged)
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[ListingStatus][]ListingStatus{
		StatusPending:  {StatusApproved, StatusRejected},
		StatusApproved: {StatusSold},
	}
	all := []ListingStatus{StatusPending, StatusApproved, StatusRejected, StatusSold}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				want = want || a == to
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func setupListingRouter(svc Service, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authMW := func(c *gin.Context) {
		if userID != "" {
			c.Set(common.UserIDKey, userID)
		}
		c.Next()
	}
	adminMW := func(c *gin.Context) { c.Next() }
	NewHandler(svc, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"), authMW, adminMW)
	return r
}

func TestHandler_PublicAndOwnerRoutes(t *testing.T) {
	f := newServiceFixture(t)
	approved := f.seed(t, "uid-1", StatusApproved)
	f.seed(t, "uid-1", StatusSold)
	r := setupListingRouter(f.svc, "uid-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/listings/slug/"+GenerateSlug(approved.Title, approved.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var one struct {
		Data ListingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, approved.ID, one.Data.ID)
	assert.Empty(t, one.Data.Documents)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/listings/mine?active=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Data []ListingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, StatusApproved, page.Data[0].Status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/listings/slug/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/listings/not-a-uuid/sold", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_RejectValidatesBody(t *testing.T) {
	f := newServiceFixture(t)
	l := f.seed(t, "uid-1", StatusPending)
	r := setupListingRouter(f.svc, "admin-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/listings/"+l.ID.String()+"/reject", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	f.notifier.On("NotifyListing", mock.Anything, "uid-1", l.ID, notification.ListingRejected, l.Title, "Financials are incomplete").Return(nil).Once()
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/listings/"+l.ID.String()+"/reject", strings.NewReader(`{"reason":"Financials are incomplete"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	f.notifier.AssertExpectations(t)
}
