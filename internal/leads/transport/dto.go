package transport

import (
	"time"

	"lead_pipeline_backend/internal/access"

	"github.com/google/uuid"
)

// Request DTOs
type MetadataRequest struct {
	Origin         string            `json:"origin,omitempty" validate:"max=100"`
	ReviewFlags    []string          `json:"reviewFlags,omitempty" validate:"max=20,dive,min=1,max=50"`
	EstimatedValue *float64          `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	SLADeadline    *time.Time        `json:"slaDeadline,omitempty"`
	Tags           map[string]string `json:"tags,omitempty" validate:"max=50,dive,keys,min=1,max=50,endkeys,max=200"`
}

type CreateLeadRequest struct {
	CompanyName  string           `json:"companyName" validate:"required,min=1,max=200"`
	ContactName  string           `json:"contactName" validate:"required,min=1,max=200"`
	ContactEmail string           `json:"contactEmail" validate:"required,email"`
	ContactPhone string           `json:"contactPhone,omitempty" validate:"omitempty,min=5,max=20"`
	Score        int              `json:"score" validate:"min=0,max=100"`
	Metadata     *MetadataRequest `json:"metadata,omitempty"`
}

type UpdateMetadataRequest struct {
	Metadata MetadataRequest `json:"metadata"`
}

type TransitionRequest struct {
	TargetStatus   string `json:"targetStatus" validate:"required"`
	ExpectedStatus string `json:"expectedStatus" validate:"required"`
}

type AssignLeadRequest struct {
	ManagerID *uuid.UUID `json:"managerId,omitempty"`
}

type RoutePoolRequest struct {
	Tier string `json:"tier,omitempty" validate:"omitempty,oneof=small mid large"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"max=32"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ListManagersRequest struct {
	Tier string `form:"tier" validate:"omitempty,oneof=small mid large"`
}

type AddContactRequest struct {
	Name    string  `json:"name" validate:"required,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Primary bool    `json:"primary"`
}

// Response DTOs
type MetadataResponse struct {
	Origin         string            `json:"origin,omitempty"`
	ReviewFlags    []string          `json:"reviewFlags,omitempty"`
	EstimatedValue *float64          `json:"estimatedValue,omitempty"`
	SLADeadline    *time.Time        `json:"slaDeadline,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
}

type LeadResponse struct {
	ID               uuid.UUID        `json:"id"`
	CompanyName      string           `json:"companyName"`
	ContactName      string           `json:"contactName"`
	ContactEmail     string           `json:"contactEmail"`
	Status           string           `json:"status"`
	NextStatuses     []string         `json:"nextStatuses"`
	AssignedToID     *uuid.UUID       `json:"assignedToId,omitempty"`
	Score            int              `json:"score"`
	Tier             string           `json:"tier"`
	Metadata         MetadataResponse `json:"metadata"`
	Version          int64            `json:"version"`
	LastReminderDate *string          `json:"lastReminderDate,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type AuditEntryResponse struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    uuid.UUID      `json:"actorId"`
	FromStatus string         `json:"fromStatus"`
	ToStatus   string         `json:"toStatus"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	IsPrimary bool      `json:"isPrimary"`
	CreatedAt time.Time `json:"createdAt"`
}

type ManagerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Tier      string    `json:"tier"`
	OpenLeads int       `json:"openLeads"`
}

type RouteSummaryResponse struct {
	Scanned  int `json:"scanned"`
	Assigned int `json:"assigned"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type SweepResponse struct {
	Scanned        int  `json:"scanned"`
	RemindersSent  int  `json:"remindersSent"`
	Skipped        int  `json:"skipped"`
	AlreadyRunning bool `json:"alreadyRunning,omitempty"`
}

type CapabilitiesResponse struct {
	Role         string              `json:"role"`
	Capabilities access.Capabilities `json:"capabilities"`
}
