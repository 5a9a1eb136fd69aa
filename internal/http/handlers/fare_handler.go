// README: Availability and fare preview for clients that price before ordering.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"flytaxi/internal/modules/availability"
	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/types"
)

type Fares interface {
	Tariff(class pricing.CarClass) (pricing.Tariff, bool)
	Price(class pricing.CarClass, distanceKm, surge float64) (types.Money, error)
}

type Clock interface {
	Now() time.Time
	Current() availability.Result
}

type FareHandler struct {
	fares Fares
	clock Clock
}

func NewFareHandler(fares Fares, clock Clock) *FareHandler {
	return &FareHandler{fares: fares, clock: clock}
}

type availabilityResp struct {
	Available bool    `json:"available"`
	Surge     float64 `json:"surge"`
	Window    string  `json:"window,omitempty"`
	LocalTime string  `json:"local_time"`
}

// Availability handles GET /api/availability.
func (h *FareHandler) Availability(c *gin.Context) {
	now := h.clock.Now()
	res := h.clock.Current()
	writeJSON(c, http.StatusOK, availabilityResp{
		Available: res.Available,
		Surge:     res.Surge,
		Window:    res.Window,
		LocalTime: now.Format(time.RFC3339),
	})
}

type previewReq struct {
	CarClass   string  `json:"car_class" binding:"required"`
	DistanceKm float64 `json:"distance_km"`
}

type previewResp struct {
	CarClass  string  `json:"car_class"`
	Label     string  `json:"label"`
	Available bool    `json:"available"`
	Surge     float64 `json:"surge"`
	Price     int64   `json:"price,omitempty"`
	Currency  string  `json:"currency,omitempty"`
}

// Preview handles POST /api/fares/preview at the current surge. During
// curfew it reports available=false without a price.
func (h *FareHandler) Preview(c *gin.Context) {
	var req previewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	class := pricing.CarClass(req.CarClass)
	tariff, ok := h.fares.Tariff(class)
	if !ok {
		writeOrderError(c, pricing.ErrUnknownCarClass)
		return
	}
	res := h.clock.Current()
	resp := previewResp{CarClass: req.CarClass, Label: tariff.Label, Available: res.Available, Surge: res.Surge}
	if res.Available {
		price, err := h.fares.Price(class, req.DistanceKm, res.Surge)
		if err != nil {
			writeOrderError(c, err)
			return
		}
		resp.Price = price.Amount
		resp.Currency = price.Currency
	}
	writeJSON(c, http.StatusOK, resp)
}
