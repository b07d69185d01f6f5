package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gradbridge/presence-backend-go/internal/domain/attendance"
	"github.com/gradbridge/presence-backend-go/internal/handler/http/response"
	"github.com/gradbridge/presence-backend-go/internal/pkg/validator"
)

type AttendanceHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	BreakIn(w http.ResponseWriter, r *http.Request)
	BreakOut(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.Service
}

func NewAttendanceHandler(attendanceService attendance.Service) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// decodeNotes reads the optional notes body. An empty body is fine; the
// actions work without notes.
func decodeNotes(r *http.Request) string {
	var req notesRequest
	if r.Body == nil {
		return ""
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	return req.Notes
}

// ClockIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	rec, err := h.attendanceService.ClockIn(r.Context(), userID, decodeNotes(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clock in successful", attendance.NewRecordView(rec))
}

// ClockOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	rec, err := h.attendanceService.ClockOut(r.Context(), userID, decodeNotes(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clock out successful", attendance.NewRecordView(rec))
}

// BreakIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) BreakIn(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	rec, err := h.attendanceService.BreakIn(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break started", attendance.NewRecordView(rec))
}

// BreakOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) BreakOut(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	rec, err := h.attendanceService.BreakOut(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended", attendance.NewRecordView(rec))
}

// Status implements AttendanceHandler.
func (h *attendanceHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	status, err := h.attendanceService.GetStatus(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, status)
}

// parseListFilter reads the paging and date-range query parameters. Date
// bounds must be YYYY-MM-DD keys; anything else is a validation error rather
// than a silently empty result set.
func parseListFilter(r *http.Request) (attendance.ListFilter, error) {
	filter := attendance.ListFilter{}
	var errs validator.ValidationErrors

	if from := r.URL.Query().Get("start_date"); from != "" {
		if _, ok := validator.IsValidDateKey(from); !ok {
			errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be a YYYY-MM-DD date"})
		}
		filter.DateFrom = from
	}
	if to := r.URL.Query().Get("end_date"); to != "" {
		if _, ok := validator.IsValidDateKey(to); !ok {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be a YYYY-MM-DD date"})
		}
		filter.DateTo = to
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}
	filter.Page = page

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			limit = limitNum
		}
	}
	filter.Limit = limit

	if len(errs) > 0 {
		return attendance.ListFilter{}, errs
	}
	return filter, nil
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.attendanceService.ListMine(r.Context(), userID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results, &response.Meta{Page: filter.Page, Limit: filter.Limit, Count: len(results)})
}

// List implements AttendanceHandler. Admin only.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	filter.UserID = r.URL.Query().Get("user_id")

	results, err := h.attendanceService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results, &response.Meta{Page: filter.Page, Limit: filter.Limit, Count: len(results)})
}
