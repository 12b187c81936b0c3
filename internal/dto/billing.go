package dto

import (
	"time"

	"github.com/yukikurage/agency-api/internal/models"
	"github.com/yukikurage/agency-api/internal/services"
)

// PlanDTO represents a plan offered by the billing provider
type PlanDTO struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	MaxUsers int    `json:"max_users"`
}

// SubscriptionDTO represents an organization's subscription
type SubscriptionDTO struct {
	Plan             PlanDTO                   `json:"plan"`
	Status           models.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time                `json:"current_period_end,omitempty"`
}

// BillingDTO is the billing overview of an organization
type BillingDTO struct {
	Subscription *SubscriptionDTO `json:"subscription"`
	Plans        []PlanDTO        `json:"plans"`
	Seats        SeatsDTO         `json:"seats"`
}

// ToPlanDTO converts a Plan model
func ToPlanDTO(p models.Plan) PlanDTO {
	return PlanDTO{ID: p.ID, Name: p.Name, MaxUsers: p.MaxUsers}
}

// ToSubscriptionDTO converts a Subscription model
func ToSubscriptionDTO(s models.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		Plan:             ToPlanDTO(s.Plan),
		Status:           s.Status,
		CurrentPeriodEnd: s.CurrentPeriodEnd,
	}
}

// ToBillingDTO converts a billing overview
func ToBillingDTO(o *services.BillingOverview) BillingDTO {
	out := BillingDTO{
		Plans: make([]PlanDTO, len(o.Plans)),
		Seats: ToSeatsDTO(o.Seats),
	}
	for i, p := range o.Plans {
		out.Plans[i] = ToPlanDTO(p)
	}
	if o.Subscription != nil {
		sub := ToSubscriptionDTO(*o.Subscription)
		out.Subscription = &sub
	}
	return out
}
