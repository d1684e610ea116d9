package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"lokals/services/pricing"

	"github.com/gin-gonic/gin"
)

// PricingHandler exposes price quotes and estimates.
type PricingHandler struct {
	Pricing pricing.PricingService
}

func NewPricingHandler(svc pricing.PricingService) *PricingHandler {
	return &PricingHandler{Pricing: svc}
}

// Quote resolves the current price for a service, optionally adjusted for a
// location.
func (h *PricingHandler) Quote(c *gin.Context) {
	service := c.Query("service")
	if service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service query parameter is required"})
		return
	}

	breakdown, err := h.Pricing.ResolvePrice(c.Request.Context(), service, c.Query("location"))
	if err != nil {
		var unknownErr *pricing.UnknownServiceError
		if errors.As(err, &unknownErr) {
			c.JSON(http.StatusNotFound, gin.H{"error": unknownErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to resolve price: %v", err)})
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// Estimate prices a checklist-scoped job upfront.
func (h *PricingHandler) Estimate(c *gin.Context) {
	var input struct {
		BasePrice float64         `json:"base_price" binding:"required"`
		Checklist map[string]bool `json:"checklist"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"estimate": pricing.EstimateFromChecklist(input.BasePrice, input.Checklist),
	})
}

// CommissionPreview shows the platform split for a hypothetical amount.
func (h *PricingHandler) CommissionPreview(c *gin.Context) {
	var input struct {
		Amount float64 `json:"amount" binding:"required"`
		Tier   string  `json:"tier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pricing.ComputeCommission(input.Amount, input.Tier))
}
