package leavehandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/org"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Org     *org.Store
	Perms   middleware.PermissionStore
}

func NewHandler(service *leave.Service, orgStore *org.Store, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Org: orgStore, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/policies", h.handleListPolicies)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/policies", h.handleCreatePolicy)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Put("/policies/{policyID}", h.handleUpdatePolicy)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Delete("/policies/{policyID}", h.handleDeactivatePolicy)

		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/holidays", h.handleCreateHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/business-days", h.handleBusinessDays)

		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/reset", h.handleResetAnnual)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/recalculate", h.handleRecalculate)

		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Delete("/requests/{requestID}", h.handleDeleteRequest)

		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/reports/balances", h.handleReportBalances)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/reports/usage", h.handleReportUsage)
	})
}

// actor resolves the caller's employee record. Admin service accounts
// may have no employee row; EmployeeID stays empty for them.
func (h *Handler) actor(r *http.Request) (leave.Actor, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		return leave.Actor{}, false
	}
	employeeID, err := h.Org.EmployeeIDByUserID(r.Context(), user.OrganizationID, user.UserID)
	if err != nil {
		slog.Warn("actor employee lookup failed", "userId", user.UserID, "err", err)
	}
	return leave.Actor{
		UserID:         user.UserID,
		EmployeeID:     employeeID,
		OrganizationID: user.OrganizationID,
		Role:           user.RoleName,
	}, true
}

func failUnauthorized(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
}

// failDomain maps lifecycle errors onto HTTP statuses. The sentinel
// message is surfaced as-is so callers see the counts and ranges the
// engine reports.
func failDomain(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, leave.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, leave.ErrNoticeViolation):
		api.Fail(w, http.StatusUnprocessableEntity, "notice_violation", err.Error(), requestID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), requestID)
	case errors.Is(err, leave.ErrOverlapConflict):
		api.Fail(w, http.StatusConflict, "overlap_conflict", err.Error(), requestID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, leave.ErrPolicyNotFound):
		api.Fail(w, http.StatusNotFound, "policy_not_found", err.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	default:
		slog.Error("leave operation failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "operation failed", requestID)
	}
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	policies, err := h.Service.ListPolicies(r.Context(), actor.OrganizationID)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

type policyPayload struct {
	Name          string `json:"name"`
	MaxDays       int    `json:"maxDays"`
	CarryForward  int    `json:"carryForward"`
	MinNoticeDays int    `json:"minNoticeDays"`
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	var payload policyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	policy, err := h.Service.CreatePolicy(r.Context(), actor, leave.LeavePolicy{
		Name:          payload.Name,
		MaxDays:       payload.MaxDays,
		CarryForward:  payload.CarryForward,
		MinNoticeDays: payload.MinNoticeDays,
	})
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Created(w, policy, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	var payload policyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	policy, err := h.Service.UpdatePolicy(r.Context(), actor, leave.LeavePolicy{
		ID:            chi.URLParam(r, "policyID"),
		Name:          payload.Name,
		MaxDays:       payload.MaxDays,
		CarryForward:  payload.CarryForward,
		MinNoticeDays: payload.MinNoticeDays,
	})
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, policy, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	if err := h.Service.DeactivatePolicy(r.Context(), actor, chi.URLParam(r, "policyID")); err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deactivated"}, middleware.GetRequestID(r.Context()))
}

type holidayPayload struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	holidays, err := h.Service.ListHolidays(r.Context(), actor.OrganizationID)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	var payload holidayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	holidayDate, err := shared.ParseDate(payload.Date)
	if err != nil || holidayDate.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid date", middleware.GetRequestID(r.Context()))
		return
	}

	holiday, err := h.Service.CreateHoliday(r.Context(), actor, leave.Holiday{Date: holidayDate, Name: payload.Name})
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Created(w, holiday, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	if err := h.Service.DeleteHoliday(r.Context(), actor, chi.URLParam(r, "holidayID")); err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBusinessDays(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	start, err := shared.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid start date", middleware.GetRequestID(r.Context()))
		return
	}
	end, err := shared.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid end date", middleware.GetRequestID(r.Context()))
		return
	}

	days, err := h.Service.CountBusinessDays(r.Context(), actor.OrganizationID, start, end)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, map[string]int{"businessDays": days}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	switch actor.Role {
	case auth.RoleEmployee:
		employeeID = actor.EmployeeID
	case auth.RoleManager:
		if employeeID == "" {
			employeeID = actor.EmployeeID
		}
		if employeeID != actor.EmployeeID {
			allowed, err := h.Org.IsManagerOf(r.Context(), actor.OrganizationID, actor.EmployeeID, employeeID)
			if err != nil {
				slog.Warn("balance manager scope check failed", "err", err)
			}
			if !allowed {
				api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
				return
			}
		}
	default:
		if employeeID == "" {
			employeeID = actor.EmployeeID
		}
	}
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_request", "employee id required", middleware.GetRequestID(r.Context()))
		return
	}

	balances, err := h.Service.Balances(r.Context(), employeeID)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResetAnnual(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	reset, err := h.Service.ResetAnnual(r.Context(), actor)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, map[string]int{"balancesReset": reset}, middleware.GetRequestID(r.Context()))
}

type recalculateRequest struct {
	EmployeeID string `json:"employeeId"`
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(r); !ok {
		failUnauthorized(w, r)
		return
	}
	var payload recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.EmployeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "employee id required", middleware.GetRequestID(r.Context()))
		return
	}

	corrected, err := h.Service.Recalculate(r.Context(), payload.EmployeeID)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, map[string]any{"corrected": len(corrected), "balances": corrected}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	query := leave.RequestQuery{
		EmployeeID: r.URL.Query().Get("employeeId"),
		Status:     strings.ToUpper(r.URL.Query().Get("status")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err := shared.ParseDate(raw); err == nil {
			query.From = from
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err := shared.ParseDate(raw); err == nil {
			query.To = to
		}
	}

	requests, total, err := h.Service.ListRequests(r.Context(), actor, query)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

type createRequestPayload struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	if actor.EmployeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_request", "no employee record for caller", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	startDate, err := shared.ParseDate(payload.StartDate)
	if err != nil || startDate.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid start date", middleware.GetRequestID(r.Context()))
		return
	}
	endDate, err := shared.ParseDate(payload.EndDate)
	if err != nil || endDate.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid end date", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.CreateRequest(r.Context(), actor, leave.CreateRequestInput{
		Type:      payload.Type,
		Reason:    payload.Reason,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	req, err := h.Service.GetRequest(r.Context(), actor, chi.URLParam(r, "requestID"))
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	req, err := h.Service.DecideRequest(r.Context(), actor, chi.URLParam(r, "requestID"), approve)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	req, err := h.Service.CancelRequest(r.Context(), actor, chi.URLParam(r, "requestID"))
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	if err := h.Service.DeleteRequest(r.Context(), actor, chi.URLParam(r, "requestID")); err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReportBalances(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	rows, err := h.Service.BalanceReport(r.Context(), actor.OrganizationID)
	if err != nil {
		failDomain(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "pdf") {
		h.writeBalanceReportPDF(w, r, rows)
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeBalanceReportPDF(w http.ResponseWriter, r *http.Request, rows []leave.BalanceReportRow) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(60, 10, "Leave Balance Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Generated %s", time.Now().Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	widths := []float64{80, 60, 25, 25, 30, 30}
	headers := []string{"Employee", "Policy", "Total", "Used", "Remaining", "Carried"}
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		name := row.EmployeeName
		if name == "" {
			name = row.EmployeeID
		}
		cells := []string{
			name,
			row.PolicyName,
			strconv.Itoa(row.TotalDays),
			strconv.Itoa(row.UsedDays),
			strconv.Itoa(row.RemainingDays),
			strconv.Itoa(row.CarryForward),
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 8, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-balances.pdf")
	if err := pdf.Output(w); err != nil {
		slog.Warn("balance report pdf write failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleReportUsage(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		failUnauthorized(w, r)
		return
	}
	rows, err := h.Service.UsageReport(r.Context(), actor.OrganizationID)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}
