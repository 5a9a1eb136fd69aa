// README: Rider events accepted by the orchestrator and selection option ids.
package order

import (
	"fmt"
	"strconv"
	"strings"

	"flytaxi/internal/types"
)

// EventKind tags an inbound rider event.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventContactShared
	EventLocationShared
	EventTextEntered
	EventSelection
	EventRatingGiven
	EventCancelRequested
)

var allEventKinds = []EventKind{
	EventStart,
	EventContactShared,
	EventLocationShared,
	EventTextEntered,
	EventSelection,
	EventRatingGiven,
	EventCancelRequested,
}

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventContactShared:
		return "contact_shared"
	case EventLocationShared:
		return "location_shared"
	case EventTextEntered:
		return "text_entered"
	case EventSelection:
		return "selection"
	case EventRatingGiven:
		return "rating_given"
	case EventCancelRequested:
		return "cancel_requested"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, bool) {
	for _, k := range allEventKinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Contact is the payload of a shared phone contact.
type Contact struct {
	Phone  string
	Name   string
	Handle string
}

// Event is one inbound rider event. Only the field matching Kind is read.
type Event struct {
	Kind     EventKind
	Contact  Contact
	Location types.Point
	Text     string
	Option   string
	Score    int
}

func StartEvent() Event { return Event{Kind: EventStart} }

func ContactEvent(phone, name, handle string) Event {
	return Event{Kind: EventContactShared, Contact: Contact{Phone: phone, Name: name, Handle: handle}}
}

func LocationEvent(p types.Point) Event { return Event{Kind: EventLocationShared, Location: p} }

func TextEvent(text string) Event { return Event{Kind: EventTextEntered, Text: text} }

func SelectionEvent(option string) Event { return Event{Kind: EventSelection, Option: option} }

func RatingEvent(score int) Event { return Event{Kind: EventRatingGiven, Score: score} }

func CancelEvent() Event { return Event{Kind: EventCancelRequested} }

// Selectable options presented with prompts.
const (
	OptionStart         = "start"
	OptionRestart       = "restart"
	OptionWaypointsDone = "waypoints_done"
	OptionConfirm       = "confirm"
	OptionChangeAddress = "change_address"

	classOptionPrefix  = "class:"
	ratingOptionPrefix = "rate:"
)

// ClassOption is the option id that selects a car class.
func ClassOption(class string) string { return classOptionPrefix + class }

// RatingOption is the option id that submits a score.
func RatingOption(score int) string { return ratingOptionPrefix + strconv.Itoa(score) }

// EventFromOption turns a pressed choice into the event it stands for:
// start and restart choices become Start and CancelRequested, rating choices
// become RatingGiven, anything else stays a Selection.
func EventFromOption(option string) Event {
	switch {
	case option == OptionStart:
		return StartEvent()
	case option == OptionRestart:
		return Event{Kind: EventCancelRequested, Option: OptionRestart}
	case strings.HasPrefix(option, ratingOptionPrefix):
		if n, err := strconv.Atoi(strings.TrimPrefix(option, ratingOptionPrefix)); err == nil {
			return RatingEvent(n)
		}
	}
	return SelectionEvent(option)
}
