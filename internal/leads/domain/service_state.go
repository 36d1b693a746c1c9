// Package domain provides core business rules for the leads bounded context.
package domain

// terminalStatuses are statuses with no outgoing pipeline edges.
var terminalStatuses = map[Status]bool{
	StatusWon:         true,
	StatusLost:        true,
	StatusCRMRejected: true,
}

// IsTerminal reports whether the lead's workflow is complete. A terminal lead
// accepts no transition, no reassignment and no reminders.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// NonTerminalStatuses returns the statuses a reminder sweep may select.
func NonTerminalStatuses() []Status {
	out := make([]Status, 0, len(Statuses))
	for _, s := range Statuses {
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}
