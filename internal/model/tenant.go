package model

import (
	"time"
)

// PlanTier is a billing plan key supplied by the payment processor.
// The platform treats it as an opaque string and maps it to quota
// ceilings in the usage gate.
type PlanTier string

const (
	PlanFree         PlanTier = "free"
	PlanStarter      PlanTier = "starter"
	PlanProfessional PlanTier = "professional"
	PlanExecutive    PlanTier = "executive"
	PlanEnterprise   PlanTier = "enterprise"
)

// Tenant is a platform customer who owns bots and receives leads.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Plan      PlanTier  `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}
