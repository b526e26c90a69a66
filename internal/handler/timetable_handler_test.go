package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type stubTimetableService struct {
	generateResp *dto.GenerateTimetableResponse
	generateErr  error
	deleteResp   *dto.DeleteBySchoolYearResponse
	deleteErr    error
	entries      []models.ScheduleEntry
	listErr      error

	lastGenerate dto.GenerateTimetableRequest
	lastDeleteID string
	lastQuery    dto.EntryListQuery
}

func (s *stubTimetableService) Generate(_ context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	s.lastGenerate = req
	return s.generateResp, s.generateErr
}

func (s *stubTimetableService) DeleteBySchoolYear(_ context.Context, schoolYearID string) (*dto.DeleteBySchoolYearResponse, error) {
	s.lastDeleteID = schoolYearID
	return s.deleteResp, s.deleteErr
}

func (s *stubTimetableService) ListEntries(_ context.Context, query dto.EntryListQuery) ([]models.ScheduleEntry, error) {
	s.lastQuery = query
	return s.entries, s.listErr
}

func newHandlerFixture(svc *stubTimetableService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &TimetableHandler{service: svc}
	h.Register(r.Group("/api/v1"))
	return r
}

func TestGenerateEndpointSuccess(t *testing.T) {
	svc := &stubTimetableService{generateResp: &dto.GenerateTimetableResponse{
		Created: []models.ScheduleEntry{{ID: "e1"}},
		Counts:  dto.RunCounts{Requested: 2, Scheduled: 2, Saved: 1},
	}}
	r := newHandlerFixture(svc)

	body, _ := json.Marshal(dto.GenerateTimetableRequest{SchoolYearID: "sy-1", Semester: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sy-1", svc.lastGenerate.SchoolYearID)
	assert.Contains(t, w.Body.String(), `"e1"`)
}

func TestGenerateEndpointCancelledReturnsOK(t *testing.T) {
	svc := &stubTimetableService{generateResp: &dto.GenerateTimetableResponse{Cancelled: true}}
	r := newHandlerFixture(svc)

	body, _ := json.Marshal(dto.GenerateTimetableRequest{SchoolYearID: "sy-1", Semester: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateEndpointRejectsMalformedBody(t *testing.T) {
	svc := &stubTimetableService{}
	r := newHandlerFixture(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/generate", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateEndpointMapsScopeConflict(t *testing.T) {
	svc := &stubTimetableService{generateErr: appErrors.ErrScopeConflict}
	r := newHandlerFixture(svc)

	body, _ := json.Marshal(dto.GenerateTimetableRequest{SchoolYearID: "sy-1", Semester: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SCOPE_CONFLICT")
}

func TestListEntriesEndpoint(t *testing.T) {
	svc := &stubTimetableService{entries: []models.ScheduleEntry{{ID: "e1"}, {ID: "e2"}}}
	r := newHandlerFixture(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timetable/entries?schoolYearId=sy-1&semester=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.EntryListQuery{SchoolYearID: "sy-1", Semester: 2}, svc.lastQuery)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestListEntriesEndpointRejectsBadSemester(t *testing.T) {
	svc := &stubTimetableService{}
	r := newHandlerFixture(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timetable/entries?schoolYearId=sy-1&semester=two", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteBySchoolYearEndpoint(t *testing.T) {
	svc := &stubTimetableService{deleteResp: &dto.DeleteBySchoolYearResponse{Deleted: 24}}
	r := newHandlerFixture(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/timetable/school-years/sy-1/entries", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sy-1", svc.lastDeleteID)
	assert.Contains(t, w.Body.String(), `"deleted":24`)
}
