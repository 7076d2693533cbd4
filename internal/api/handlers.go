// internal/api/handlers.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/common/validation"
	"blood-alert-workers/internal/engine/orchestrator"
	"blood-alert-workers/internal/models"
	"blood-alert-workers/pkg/registry"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Engine is the orchestrator surface exposed over HTTP.
type Engine interface {
	SubmitRequest(ctx context.Context, d models.RequestDescriptor) (*orchestrator.SubmitResult, error)
	ReEscalate(ctx context.Context, hospitalName, bloodGroup string, urgencyScore int, requestType string) (*orchestrator.ReEscalateResult, error)
}

// Requests reads and updates the request ledger.
type Requests interface {
	Get(ctx context.Context, id string) (*models.BloodRequestRecord, error)
	List(ctx context.Context, status string, limit int) ([]*models.BloodRequestRecord, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.BloodRequestRecord, error)
}

type Donors interface {
	FindEligibleDonors(ctx context.Context, bloodGroup string) ([]models.Donor, error)
}

type Handler struct {
	engine    Engine
	requests  Requests
	donors    Donors
	validator *validation.Validator
	logger    logger.Logger
}

func NewHandler(engine Engine, requests Requests, donors Donors, validator *validation.Validator, log logger.Logger) *Handler {
	return &Handler{
		engine:    engine,
		requests:  requests,
		donors:    donors,
		validator: validator,
		logger:    log.WithFields(map[string]interface{}{"component": "http-api"}),
	}
}

type submitBody struct {
	RequestID     string `json:"requestId"`
	RequestType   string `json:"requestType"`
	BloodGroup    string `json:"bloodGroup"`
	UnitsRequired int    `json:"unitsRequired"`
	Units         int    `json:"units"`
	HospitalID    string `json:"hospitalId"`
	HospitalName  string `json:"hospitalName"`
}

func (b submitBody) descriptor() models.RequestDescriptor {
	units := b.UnitsRequired
	if units == 0 {
		units = b.Units
	}
	return models.RequestDescriptor{
		RequestID:     b.RequestID,
		RequestType:   b.RequestType,
		BloodGroup:    b.BloodGroup,
		UnitsRequired: units,
		HospitalID:    b.HospitalID,
		HospitalName:  b.HospitalName,
	}
}

type triggerBody struct {
	HospitalName string `json:"hospitalName"`
	BloodGroup   string `json:"bloodGroup"`
	UrgencyScore int    `json:"urgencyScore"`
	RequestType  string `json:"requestType"`
}

type statusBody struct {
	Status string `json:"status"`
}

// decode validates the raw body against the activity schema for taskType.
func (h *Handler) decode(c *gin.Context, taskType string, out interface{}) error {
	raw, err := c.GetRawData()
	if err != nil {
		return apperrors.NewValidationError("body", fmt.Sprintf("read body: %v", err))
	}
	return h.validator.Decode(taskType, raw, out)
}

// SubmitRequest handles POST /api/blood-requests.
func (h *Handler) SubmitRequest(c *gin.Context) {
	var body submitBody
	if err := h.decode(c, registry.TaskSubmitBloodRequest, &body); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.engine.SubmitRequest(c.Request.Context(), body.descriptor())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// TriggerAlert handles POST /api/trigger-alert.
func (h *Handler) TriggerAlert(c *gin.Context) {
	var body triggerBody
	if err := h.decode(c, registry.TaskTriggerAlert, &body); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.engine.ReEscalate(c.Request.Context(), body.HospitalName, body.BloodGroup, body.UrgencyScore, body.RequestType)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *Handler) GetRequest(c *gin.Context) {
	rec, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"success": true, "request": rec})
}

// ListRequests handles GET /api/blood-requests?status=&limit=.
func (h *Handler) ListRequests(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !isKnownStatus(status) {
		respondError(c, apperrors.NewValidationError("status", fmt.Sprintf("unknown status %q", status)))
		return
	}

	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxListLimit {
			respondError(c, apperrors.NewValidationError("limit", fmt.Sprintf("must be an integer within 1..%d", MaxListLimit)))
			return
		}
		limit = n
	}

	recs, err := h.requests.List(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"success": true, "requests": recs, "count": len(recs)})
}

// UpdateStatus handles PATCH /api/blood-requests/:id/status. Only active requests can move.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperrors.NewValidationError("status", err.Error()))
		return
	}
	if body.Status != models.StatusFulfilled && body.Status != models.StatusCancelled {
		respondError(c, apperrors.NewValidationError("status", fmt.Sprintf("status must be %s or %s", models.StatusFulfilled, models.StatusCancelled)))
		return
	}

	rec, err := h.requests.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("request status changed", map[string]interface{}{
		"requestId": rec.RequestID,
		"status":    rec.Status,
	})
	respondOK(c, gin.H{"success": true, "request": rec})
}

type donorView struct {
	PatientID     string `json:"patientId"`
	Name          string `json:"name"`
	BloodGroup    string `json:"bloodGroup"`
	ContactNumber string `json:"contactNumber"`
}

// ListDonors handles GET /api/donors?bloodGroup=. Contact numbers are masked.
func (h *Handler) ListDonors(c *gin.Context) {
	donors, err := h.donors.FindEligibleDonors(c.Request.Context(), c.Query("bloodGroup"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]donorView, 0, len(donors))
	for _, d := range donors {
		out = append(out, donorView{
			PatientID:     d.PatientID,
			Name:          d.Name,
			BloodGroup:    d.BloodGroup,
			ContactNumber: maskContact(d.ContactNumber),
		})
	}
	respondOK(c, gin.H{"success": true, "donors": out, "count": len(out)})
}

func isKnownStatus(s string) bool {
	switch s {
	case models.StatusActive, models.StatusFulfilled, models.StatusCancelled:
		return true
	}
	return false
}

// maskContact keeps the last four characters.
func maskContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if len(contact) <= 4 {
		return strings.Repeat("*", len(contact))
	}
	return strings.Repeat("*", len(contact)-4) + contact[len(contact)-4:]
}
