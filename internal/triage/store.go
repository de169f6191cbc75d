package triage

import "context"

// Store is the persistence interface for visit records.
type Store interface {
	Insert(ctx context.Context, v *VisitRecord) (*Ack, error)
	Get(ctx context.Context, id string) (*VisitRecord, bool, error)
}

// Notifier delivers referral notifications for stored visits.
type Notifier interface {
	Send(ctx context.Context, v *VisitRecord) error
}
