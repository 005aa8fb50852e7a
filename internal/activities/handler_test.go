package activities_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pacelog/pacelog/internal/activities"
	"github.com/pacelog/pacelog/internal/auth"
	"github.com/pacelog/pacelog/internal/feed"
	"github.com/pacelog/pacelog/internal/telemetry/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testUserID = 42

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(auth.WithUserID(req.Context(), testUserID))
}

func testActivity(id int) activities.Activity {
	return activities.Activity{
		ID:         id,
		Type:       activities.TypeRun,
		Date:       time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
		DistanceKm: gofakeit.Float64Range(1, 42),
		Title:      gofakeit.Sentence(3),
		Feeling:    4,
		Effort:     3,
	}
}

func TestHandleAdd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := NewMockactivitiesRepo(ctrl)
	publisherMock := NewMockchangePublisher(ctrl)
	handler := activities.NewHandler(repoMock, publisherMock, nil, metrics.NewTestManager())

	newActivity := testActivity(0)
	added := newActivity
	added.ID = 7

	repoMock.EXPECT().
		Add(gomock.Any(), testUserID, gomock.Any()).
		Return(&added, nil)
	publisherMock.EXPECT().
		PublishChange(testUserID, feed.EventTypeInsert, &added, nil)

	reqJson, err := json.Marshal(newActivity)
	require.NoError(t, err)

	req := authedRequest(http.MethodPost, "/activities", reqJson)
	rec := httptest.NewRecorder()
	handler.HandleAdd(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var respActivity activities.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respActivity))
	assert.Equal(t, 7, respActivity.ID)
	assert.Equal(t, newActivity.Type, respActivity.Type)
}

func TestHandleAdd_AppliesDefaultRatings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := NewMockactivitiesRepo(ctrl)
	publisherMock := NewMockchangePublisher(ctrl)
	handler := activities.NewHandler(repoMock, publisherMock, nil, metrics.NewTestManager())

	newActivity := testActivity(0)
	newActivity.Feeling = 0
	newActivity.Effort = 99

	repoMock.EXPECT().
		Add(gomock.Any(), testUserID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int, activity activities.Activity) (*activities.Activity, error) {
			assert.Equal(t, activities.DefaultRating, activity.Feeling)
			assert.Equal(t, activities.DefaultRating, activity.Effort)
			activity.ID = 7
			return &activity, nil
		})
	publisherMock.EXPECT().
		PublishChange(testUserID, feed.EventTypeInsert, gomock.Any(), nil)

	reqJson, err := json.Marshal(newActivity)
	require.NoError(t, err)

	req := authedRequest(http.MethodPost, "/activities", reqJson)
	rec := httptest.NewRecorder()
	handler.HandleAdd(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandleAdd_InvalidType(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := activities.NewHandler(
		NewMockactivitiesRepo(ctrl),
		NewMockchangePublisher(ctrl),
		nil,
		metrics.NewTestManager(),
	)

	newActivity := testActivity(0)
	newActivity.Type = "swim"
	reqJson, err := json.Marshal(newActivity)
	require.NoError(t, err)

	req := authedRequest(http.MethodPost, "/activities", reqJson)
	rec := httptest.NewRecorder()
	handler.HandleAdd(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAdd_NoUserInContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := activities.NewHandler(
		NewMockactivitiesRepo(ctrl),
		NewMockchangePublisher(ctrl),
		nil,
		metrics.NewTestManager(),
	)

	req := httptest.NewRequest(http.MethodPost, "/activities", nil)
	rec := httptest.NewRecorder()
	handler.HandleAdd(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleListAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := NewMockactivitiesRepo(ctrl)
	handler := activities.NewHandler(repoMock, NewMockchangePublisher(ctrl), nil, metrics.NewTestManager())

	found := []activities.Activity{testActivity(1), testActivity(2)}
	repoMock.EXPECT().
		ListAll(gomock.Any(), testUserID, activities.ActivityParams{Type: activities.TypeRun}).
		Return(found, nil)

	req := authedRequest(http.MethodGet, "/activities?type=run", nil)
	rec := httptest.NewRecorder()
	handler.HandleListAll(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var respActivities []activities.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respActivities))
	assert.Len(t, respActivities, 2)
}

func TestHandleList_Paged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := NewMockactivitiesRepo(ctrl)
	handler := activities.NewHandler(repoMock, NewMockchangePublisher(ctrl), nil, metrics.NewTestManager())

	repoMock.EXPECT().
		List(gomock.Any(), testUserID, activities.ListParams{Page: 2, Size: 10}).
		Return([]activities.Activity{testActivity(11)}, 21, nil)

	req := authedRequest(http.MethodGet, "/activities/list/page/2/size/10", nil)
	req = mux.SetURLVars(req, map[string]string{"page": "2", "size": "10"})
	rec := httptest.NewRecorder()
	handler.HandleList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp activities.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 21, resp.Total)
	assert.Len(t, resp.Activities, 1)
}

func TestHandleUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := NewMockactivitiesRepo(ctrl)
	publisherMock := NewMockchangePublisher(ctrl)
	handler := activities.NewHandler(repoMock, publisherMock, nil, metrics.NewTestManager())

	current := testActivity(7)
	updated := current
	updated.DistanceKm = 10

	repoMock.EXPECT().
		Get(gomock.Any(), testUserID, 7).
		Return(&current, nil)
	repoMock.EXPECT().
		Update(gomock.Any(), testUserID, gomock.Any()).
		Return(nil)
	publisherMock.EXPECT().
		PublishChange(testUserID, feed.EventTypeUpdate, gomock.Any(), &current)

	reqJson, err := json.Marshal(updated)
	require.NoError(t, err)

	req := authedRequest(http.MethodPut, "/activities", reqJson)
	rec := httptest.NewRecorder()
	handler.HandleUpdate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp activities.UpdateActivityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.UpdatedID)
}

func TestHandleUpdate_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := NewMockactivitiesRepo(ctrl)
	handler := activities.NewHandler(repoMock, NewMockchangePublisher(ctrl), nil, metrics.NewTestManager())

	repoMock.EXPECT().
		Get(gomock.Any(), testUserID, 7).
		Return(nil, activities.ErrActivityNotFound)

	reqJson, err := json.Marshal(testActivity(7))
	require.NoError(t, err)

	req := authedRequest(http.MethodPut, "/activities", reqJson)
	rec := httptest.NewRecorder()
	handler.HandleUpdate(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := NewMockactivitiesRepo(ctrl)
	publisherMock := NewMockchangePublisher(ctrl)
	handler := activities.NewHandler(repoMock, publisherMock, nil, metrics.NewTestManager())

	current := testActivity(7)
	repoMock.EXPECT().
		Get(gomock.Any(), testUserID, 7).
		Return(&current, nil)
	repoMock.EXPECT().
		Delete(gomock.Any(), testUserID, 7).
		Return(nil)
	publisherMock.EXPECT().
		PublishChange(testUserID, feed.EventTypeDelete, nil, &current)

	req := authedRequest(http.MethodDelete, "/activities/7", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.HandleDelete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp activities.DeleteActivityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.DeletedID)
}

func TestHandleDelete_AlreadyGone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repoMock := NewMockactivitiesRepo(ctrl)
	handler := activities.NewHandler(repoMock, NewMockchangePublisher(ctrl), nil, metrics.NewTestManager())

	repoMock.EXPECT().
		Get(gomock.Any(), testUserID, 7).
		Return(nil, activities.ErrActivityNotFound)

	req := authedRequest(http.MethodDelete, "/activities/7", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.HandleDelete(rec, req)

	// deleting a record that is already gone succeeds, clients retry
	require.Equal(t, http.StatusOK, rec.Code)
	var resp activities.DeleteActivityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.DeletedID)
}
