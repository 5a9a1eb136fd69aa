// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"flytaxi/internal/modules/order"
	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/modules/rating"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts transport-prefixed ids such as "tg:42" or "fb:AbC-9_x".
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c == ':' || c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest),
		errors.Is(err, order.ErrUnknownEvent),
		errors.Is(err, pricing.ErrUnknownCarClass),
		errors.Is(err, pricing.ErrNegativeDistance),
		errors.Is(err, rating.ErrInvalidScore):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
