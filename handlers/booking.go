package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"lokals/models"
	"lokals/services/booking"
	"lokals/services/pricing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	Service   booking.BookingService
	Lifecycle booking.LifecycleService
	Arbiter   booking.ArbiterService
	Logger    *zap.Logger
}

func NewBookingHandler(svc booking.BookingService, lc booking.LifecycleService, arb booking.ArbiterService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: svc, Lifecycle: lc, Arbiter: arb, Logger: logger}
}

// CreateBooking creates a booking and immediately dispatches provider
// matching. A booking with no eligible providers is still created; the
// response says so explicitly.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input struct {
		ClientID        string          `json:"client_id" binding:"required"`
		ServiceCategory string          `json:"service_category" binding:"required"`
		DeliveryMode    string          `json:"delivery_mode" binding:"required"`
		Lat             float64         `json:"lat"`
		Lng             float64         `json:"lng"`
		Address         *models.Address `json:"address"`
		Requirements    map[string]any  `json:"requirements"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if input.DeliveryMode != models.ModeLocal && input.DeliveryMode != models.ModeOnline {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delivery_mode must be LOCAL or ONLINE"})
		return
	}

	create := booking.CreateBookingInput{
		ClientID:        input.ClientID,
		ServiceCategory: input.ServiceCategory,
		DeliveryMode:    input.DeliveryMode,
		Address:         input.Address,
		Requirements:    input.Requirements,
	}
	if input.Lat != 0 || input.Lng != 0 {
		loc := models.NewGeoPoint(input.Lng, input.Lat)
		create.Location = &loc
	}

	b, err := h.Service.CreateBooking(c.Request.Context(), create)
	if err != nil {
		var availErr *booking.AvailabilityError
		var unknownErr *pricing.UnknownServiceError
		switch {
		case errors.As(err, &availErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": availErr.Error()})
		case errors.As(err, &unknownErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": unknownErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to create booking: %v", err)})
		}
		return
	}

	notified, err := h.Service.DispatchMatching(c.Request.Context(), b.ID)
	if err != nil && !errors.Is(err, booking.ErrNoCandidates) {
		h.Logger.Error("matching dispatch failed after create",
			zap.String("bookingID", b.ID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking":            b,
		"providers_notified": notified,
		"no_providers":       errors.Is(err, booking.ErrNoCandidates),
	})
}

// GetBooking returns a single booking.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListRequests returns every provider request row for a booking.
func (h *BookingHandler) ListRequests(c *gin.Context) {
	reqs, err := h.Service.GetRequests(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// Rematch re-runs provider discovery and notification for a booking.
func (h *BookingHandler) Rematch(c *gin.Context) {
	bookingID := c.Param("id")
	notified, err := h.Service.DispatchMatching(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, booking.ErrNoCandidates) {
			c.JSON(http.StatusOK, gin.H{"providers_notified": 0, "no_providers": true})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers_notified": notified, "no_providers": false})
}

// Transition moves a booking along its lifecycle.
func (h *BookingHandler) Transition(c *gin.Context) {
	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	b, err := h.Lifecycle.Transition(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Accept is a provider's attempt to take a booking. The response always
// carries a success flag; losing the race is 200 with success=false.
func (h *BookingHandler) Accept(c *gin.Context) {
	var input struct {
		ProviderID string `json:"provider_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	result, err := h.Arbiter.Accept(c.Request.Context(), c.Param("id"), input.ProviderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to process acceptance: %v", err)})
		return
	}
	if result.Outcome == booking.OutcomeNotFound {
		c.JSON(http.StatusNotFound, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reject declines a provider's request. When the last pending request is
// rejected the response suggests a rematch.
func (h *BookingHandler) Reject(c *gin.Context) {
	var input struct {
		ProviderID string `json:"provider_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	result, err := h.Arbiter.Reject(c.Request.Context(), c.Param("id"), input.ProviderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to process rejection: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rejected":          result.Rejected,
		"remaining_pending": result.RemainingPending,
		"rematch_suggested": result.Rejected && result.RemainingPending == 0,
	})
}

// Settle records the commission split for a completed booking.
func (h *BookingHandler) Settle(c *gin.Context) {
	split, err := h.Service.Settle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, split)
}

func (h *BookingHandler) respondError(c *gin.Context, err error) {
	var notFound *booking.NotFoundError
	var invalid *booking.InvalidTransitionError
	var conflict *booking.TransitionConflictError
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{"error": invalid.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
