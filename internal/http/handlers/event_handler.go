// README: Rider event endpoint. Feeds gateway clients into the order orchestrator.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"flytaxi/internal/modules/order"
	"flytaxi/internal/types"
)

type Orchestrator interface {
	Handle(ctx context.Context, riderID types.ID, ev order.Event) (order.Reply, error)
	State(ctx context.Context, riderID types.ID) (order.State, error)
}

type EventHandler struct {
	order Orchestrator
}

func NewEventHandler(svc Orchestrator) *EventHandler {
	return &EventHandler{order: svc}
}

type eventReq struct {
	Kind   string   `json:"kind"`
	Phone  string   `json:"phone"`
	Name   string   `json:"name"`
	Handle string   `json:"handle"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Text   string   `json:"text"`
	Option string   `json:"option"`
	Score  int      `json:"score"`
}

type choiceResp struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type effectResp struct {
	Type    string       `json:"type"`
	Text    string       `json:"text,omitempty"`
	Choices []choiceResp `json:"choices,omitempty"`
	Image   []byte       `json:"image,omitempty"`
	Caption string       `json:"caption,omitempty"`
}

type eventResp struct {
	RiderID types.ID     `json:"rider_id"`
	State   string       `json:"state"`
	Effects []effectResp `json:"effects"`
}

// toEvent validates the payload for its kind.
func (r eventReq) toEvent() (order.Event, bool) {
	kind, ok := order.ParseEventKind(r.Kind)
	if !ok {
		return order.Event{}, false
	}
	switch kind {
	case order.EventStart:
		return order.StartEvent(), true
	case order.EventCancelRequested:
		return order.CancelEvent(), true
	case order.EventContactShared:
		return order.ContactEvent(r.Phone, r.Name, r.Handle), r.Phone != ""
	case order.EventLocationShared:
		if r.Lat == nil || r.Lng == nil {
			return order.Event{}, false
		}
		return order.LocationEvent(types.Point{Lat: *r.Lat, Lng: *r.Lng}), true
	case order.EventTextEntered:
		return order.TextEvent(r.Text), strings.TrimSpace(r.Text) != ""
	case order.EventSelection:
		return order.EventFromOption(r.Option), r.Option != ""
	case order.EventRatingGiven:
		return order.RatingEvent(r.Score), true
	}
	return order.Event{}, false
}

// Post handles POST /api/riders/:id/events.
func (h *EventHandler) Post(c *gin.Context) {
	riderID := c.Param("id")
	if !isValidID(riderID) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	var req eventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ev, ok := req.toEvent()
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid event")
		return
	}

	ctx := c.Request.Context()
	reply, err := h.order.Handle(ctx, types.ID(riderID), ev)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	state, err := h.order.State(ctx, types.ID(riderID))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, eventResp{RiderID: types.ID(riderID), State: state.String(), Effects: effectsResp(reply)})
}

// GetState handles GET /api/riders/:id/state.
func (h *EventHandler) GetState(c *gin.Context) {
	riderID := c.Param("id")
	if !isValidID(riderID) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	state, err := h.order.State(c.Request.Context(), types.ID(riderID))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rider_id": riderID, "state": state.String()})
}

func effectsResp(r order.Reply) []effectResp {
	out := make([]effectResp, 0, len(r.Effects))
	for _, e := range r.Effects {
		switch v := e.(type) {
		case order.Prompt:
			p := effectResp{Type: "prompt", Text: v.Text}
			for _, ch := range v.Choices {
				p.Choices = append(p.Choices, choiceResp{ID: ch.ID, Label: ch.Label, Kind: choiceKind(ch.Kind)})
			}
			out = append(out, p)
		case order.ShowImage:
			out = append(out, effectResp{Type: "image", Image: v.Image, Caption: v.Caption})
		}
	}
	return out
}

func choiceKind(k order.ChoiceKind) string {
	switch k {
	case order.ChoiceContact:
		return "contact"
	case order.ChoiceLocation:
		return "location"
	default:
		return "option"
	}
}
