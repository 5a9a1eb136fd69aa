// README: Dialogue states and the data each state carries.
package order

import (
	"flytaxi/internal/modules/pricing"
	"flytaxi/internal/types"
)

// State is the lifecycle position of a rider session.
type State int

const (
	StateAwaitingPhone State = iota + 1
	StateAwaitingPickup
	StateAwaitingDestination
	StateAwaitingWaypoints
	StateAwaitingCarClass
	StateAwaitingConfirmation
	StateAwaitingRating
	// StateClosed is terminal. Closed sessions are deleted, never stored.
	StateClosed
)

var liveStates = []State{
	StateAwaitingPhone,
	StateAwaitingPickup,
	StateAwaitingDestination,
	StateAwaitingWaypoints,
	StateAwaitingCarClass,
	StateAwaitingConfirmation,
	StateAwaitingRating,
}

func (s State) String() string {
	switch s {
	case StateAwaitingPhone:
		return "awaiting_phone"
	case StateAwaitingPickup:
		return "awaiting_pickup"
	case StateAwaitingDestination:
		return "awaiting_destination"
	case StateAwaitingWaypoints:
		return "awaiting_waypoints"
	case StateAwaitingCarClass:
		return "awaiting_car_class"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateAwaitingRating:
		return "awaiting_rating"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MaxWaypoints caps the intermediate stops of one trip.
const MaxWaypoints = 5

// Stage is the per-state session payload. Each variant holds exactly the data
// that is known in its state, so a price never exists without a distance.
type Stage interface {
	State() State
}

type AwaitingPhone struct{}

type AwaitingPickup struct{}

type AwaitingDestination struct {
	Pickup types.Point
}

// Waypoint is an intermediate stop given either as a location or as text that
// is geocoded when the route is resolved.
type Waypoint struct {
	Text     string
	Point    types.Point
	Resolved bool
}

type AwaitingWaypoints struct {
	Pickup           types.Point
	DestinationText  string
	DestinationCoord *types.Point
	Waypoints        []Waypoint
}

// Trip is a resolved route.
type Trip struct {
	Pickup          types.Point
	DestinationText string
	Destination     types.Point
	Waypoints       []types.Point
	DistanceKm      float64
	DurationMin     float64
	Path            []types.Point
}

// Stops lists pickup, waypoints and destination in driving order.
func (t Trip) Stops() []types.Point {
	stops := make([]types.Point, 0, len(t.Waypoints)+2)
	stops = append(stops, t.Pickup)
	stops = append(stops, t.Waypoints...)
	return append(stops, t.Destination)
}

type AwaitingCarClass struct {
	Trip   Trip
	Quotes []pricing.Quote
	Surge  float64
}

type AwaitingConfirmation struct {
	Trip     Trip
	CarClass pricing.CarClass
	Label    string
	Price    types.Money
	Surge    float64
}

type AwaitingRating struct {
	OrderID  types.ID
	DriverID types.ID
	CarClass pricing.CarClass
	Price    types.Money
}

func (AwaitingPhone) State() State        { return StateAwaitingPhone }
func (AwaitingPickup) State() State       { return StateAwaitingPickup }
func (AwaitingDestination) State() State  { return StateAwaitingDestination }
func (AwaitingWaypoints) State() State    { return StateAwaitingWaypoints }
func (AwaitingCarClass) State() State     { return StateAwaitingCarClass }
func (AwaitingConfirmation) State() State { return StateAwaitingConfirmation }
func (AwaitingRating) State() State       { return StateAwaitingRating }
