package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/service"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
	"github.com/campusops/timetable-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	DeleteBySchoolYear(ctx context.Context, schoolYearID string) (*dto.DeleteBySchoolYearResponse, error)
	ListEntries(ctx context.Context, query dto.EntryListQuery) ([]models.ScheduleEntry, error)
}

// TimetableHandler exposes the timetable generator endpoints.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Register wires the timetable routes onto the router group.
func (h *TimetableHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/timetable/generate", h.Generate)
	rg.GET("/timetable/entries", h.ListEntries)
	rg.DELETE("/timetable/school-years/:id/entries", h.DeleteBySchoolYear)
}

// Generate builds and persists a timetable for the requested scope.
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if result.Cancelled {
		status = http.StatusOK
	}
	response.JSON(c, status, result)
}

// ListEntries returns stored entries for a school year and semester.
func (h *TimetableHandler) ListEntries(c *gin.Context) {
	semester, err := strconv.Atoi(c.DefaultQuery("semester", "0"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be a number"))
		return
	}
	query := dto.EntryListQuery{
		SchoolYearID: c.Query("schoolYearId"),
		Semester:     semester,
	}
	entries, err := h.service.ListEntries(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

// DeleteBySchoolYear removes every stored entry for a school year.
func (h *TimetableHandler) DeleteBySchoolYear(c *gin.Context) {
	result, err := h.service.DeleteBySchoolYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
