package lifecycle

import (
	"github.com/spec-kit/storm-dispatch/internal/domain"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

// SegmentAction is the time-tracking side effect a transition carries.
// The state machine decides the action; the work segment tracker applies it.
type SegmentAction int

const (
	SegmentNone SegmentAction = iota
	SegmentOpen
	SegmentClose
)

// Transition is a validated status change plus its derived effects.
type Transition struct {
	From          domain.TicketStatus
	To            domain.TicketStatus
	SegmentAction SegmentAction
	Terminal      bool
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusCreated:   {domain.TicketStatusAssigned, domain.TicketStatusCancelled},
	domain.TicketStatusAssigned:  {domain.TicketStatusAccepted, domain.TicketStatusCancelled},
	domain.TicketStatusAccepted:  {domain.TicketStatusEnroute, domain.TicketStatusOnSite, domain.TicketStatusWorking, domain.TicketStatusCancelled},
	domain.TicketStatusEnroute:   {domain.TicketStatusOnSite, domain.TicketStatusWorking, domain.TicketStatusBlocked, domain.TicketStatusCancelled},
	domain.TicketStatusOnSite:    {domain.TicketStatusWorking, domain.TicketStatusCompleted, domain.TicketStatusBlocked, domain.TicketStatusCancelled},
	domain.TicketStatusWorking:   {domain.TicketStatusCompleted, domain.TicketStatusBlocked, domain.TicketStatusCancelled},
	domain.TicketStatusBlocked:   {domain.TicketStatusWorking, domain.TicketStatusCancelled, domain.TicketStatusClosed},
	domain.TicketStatusCompleted: {domain.TicketStatusClosed},
	domain.TicketStatusClosed:    {},
	domain.TicketStatusCancelled: {},
}

// Statuses returns every known lifecycle status.
func Statuses() []domain.TicketStatus {
	statuses := make([]domain.TicketStatus, 0, len(allowedTransitions))
	for status := range allowedTransitions {
		statuses = append(statuses, status)
	}
	return statuses
}

// Known reports whether the status is part of the lifecycle at all.
func Known(status domain.TicketStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsWorking reports whether a status accrues crew time.
func IsWorking(status domain.TicketStatus) bool {
	return status == domain.TicketStatusOnSite || status == domain.TicketStatusWorking
}

// Plan validates a requested status change and returns the transition with
// its segment side effect. An out-of-table request yields an
// INVALID_TRANSITION error and no transition.
func Plan(from, to domain.TicketStatus) (Transition, error) {
	if !Known(to) {
		return Transition{}, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": string(to)})
	}
	if !CanTransition(from, to) {
		return Transition{}, apperrors.NewInvalidTransition(string(from), string(to))
	}

	t := Transition{From: from, To: to, Terminal: to.IsTerminal()}
	switch {
	case !IsWorking(from) && IsWorking(to):
		t.SegmentAction = SegmentOpen
	case IsWorking(from) && !IsWorking(to):
		t.SegmentAction = SegmentClose
	}
	return t, nil
}
