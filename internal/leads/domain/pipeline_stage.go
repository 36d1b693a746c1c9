package domain

import "strings"

// Status is a lead's position in the conversion pipeline.
type Status string

const (
	StatusNew          Status = "NEW"
	StatusContacted    Status = "CONTACTED"
	StatusNegotiation  Status = "NEGOTIATION"
	StatusQualified    Status = "QUALIFIED"
	StatusProposalSent Status = "PROPOSAL_SENT"
	StatusPendingCRM   Status = "PENDING_CRM"
	StatusCRMApproved  Status = "CRM_APPROVED"
	StatusCRMRejected  Status = "CRM_REJECTED"
	StatusPendingAdmin Status = "PENDING_ADMIN"
	StatusWon          Status = "WON"
	StatusLost         Status = "LOST"
)

// Statuses lists every pipeline status in pipeline order.
var Statuses = []Status{
	StatusNew,
	StatusContacted,
	StatusNegotiation,
	StatusQualified,
	StatusProposalSent,
	StatusPendingCRM,
	StatusCRMApproved,
	StatusCRMRejected,
	StatusPendingAdmin,
	StatusWon,
	StatusLost,
}

// Edge is a directed pipeline transition.
type Edge struct {
	From Status
	To   Status
}

func (e Edge) String() string {
	return string(e.From) + "->" + string(e.To)
}

// transitions is the complete pipeline graph. Terminal statuses have no entry.
var transitions = map[Status][]Status{
	StatusNew:          {StatusContacted},
	StatusContacted:    {StatusNegotiation},
	StatusNegotiation:  {StatusQualified},
	StatusQualified:    {StatusProposalSent},
	StatusProposalSent: {StatusPendingCRM},
	StatusPendingCRM:   {StatusCRMApproved, StatusCRMRejected},
	StatusCRMApproved:  {StatusPendingAdmin},
	StatusPendingAdmin: {StatusWon, StatusLost},
}

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range Statuses {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

// IsKnown reports whether s is one of the pipeline statuses.
func (s Status) IsKnown() bool {
	for _, known := range Statuses {
		if known == s {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsEdge reports whether the pipeline graph contains the edge.
func IsEdge(e Edge) bool {
	for _, to := range transitions[e.From] {
		if to == e.To {
			return true
		}
	}
	return false
}

// Edges returns every edge of the pipeline graph in pipeline order.
func Edges() []Edge {
	var edges []Edge
	for _, from := range Statuses {
		for _, to := range transitions[from] {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}
