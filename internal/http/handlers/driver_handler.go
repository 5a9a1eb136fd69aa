// README: Driver rating lookup.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"flytaxi/internal/modules/rating"
	"flytaxi/internal/types"
)

type RatingReader interface {
	Aggregate(ctx context.Context, subjectID types.ID) (rating.Aggregate, error)
}

type DriverHandler struct {
	ratings RatingReader
}

func NewDriverHandler(ratings RatingReader) *DriverHandler {
	return &DriverHandler{ratings: ratings}
}

// Rating handles GET /api/drivers/:id/rating.
func (h *DriverHandler) Rating(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	agg, err := h.ratings.Aggregate(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"driver_id": id,
		"average":   agg.Average(),
		"count":     agg.Count,
	})
}
