package lifecycle

import (
	"errors"
	"fmt"
)

// Kind selects the collection and its transition table.
type Kind string

const (
	KindBooking Kind = "booking"
	KindTask    Kind = "task"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBooking, KindTask:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown record kind: %s", s)
	}
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked-in"
	StatusCheckedOut Status = "checked-out"
	StatusCancelled  Status = "cancelled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus rejects anything outside the closed set. A status the store
// invents must surface as an error, not fall through to a default.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled,
		StatusInProgress, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCheckIn  Action = "check-in"
	ActionCheckOut Action = "check-out"
	ActionCancel   Action = "cancel"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionConfirm, ActionCheckIn, ActionCheckOut, ActionCancel, ActionStart, ActionComplete:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action: %s", s)
	}
}

var ErrIllegalTransition = errors.New("illegal transition")

type edge struct {
	action Action
	to     Status
}

// Slices, not maps, so LegalActions has a stable order.
var bookingTransitions = map[Status][]edge{
	StatusPending:    {{ActionConfirm, StatusConfirmed}, {ActionCancel, StatusCancelled}},
	StatusConfirmed:  {{ActionCheckIn, StatusCheckedIn}, {ActionCancel, StatusCancelled}},
	StatusCheckedIn:  {{ActionCheckOut, StatusCheckedOut}},
	StatusCheckedOut: {},
	StatusCancelled:  {},
}

var taskTransitions = map[Status][]edge{
	StatusPending:    {{ActionStart, StatusInProgress}, {ActionCancel, StatusCancelled}},
	StatusInProgress: {{ActionComplete, StatusCompleted}, {ActionCancel, StatusCancelled}},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func table(kind Kind) map[Status][]edge {
	if kind == KindTask {
		return taskTransitions
	}
	return bookingTransitions
}

// Statuses lists every status a kind can be in.
func Statuses(kind Kind) []Status {
	if kind == KindTask {
		return []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}
	}
	return []Status{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled}
}

// ValidFor reports whether st belongs to kind's lifecycle.
func ValidFor(kind Kind, st Status) bool {
	_, ok := table(kind)[st]
	return ok
}

// LegalActions returns exactly the actions the table allows from st.
func LegalActions(kind Kind, st Status) []Action {
	edges := table(kind)[st]
	out := make([]Action, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.action)
	}
	return out
}

// Next returns the status action leads to from st.
func Next(kind Kind, st Status, action Action) (Status, error) {
	for _, e := range table(kind)[st] {
		if e.action == action {
			return e.to, nil
		}
	}
	return "", fmt.Errorf("%w: %s from %s", ErrIllegalTransition, action, st)
}

// Terminal reports whether no action is available from st.
func Terminal(kind Kind, st Status) bool {
	return len(table(kind)[st]) == 0
}
