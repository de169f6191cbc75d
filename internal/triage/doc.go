// Package triage provides the business boundary for Umeed's visit triage.
// It defines the Engine (route, vectorize, predict, override, score), the
// model Registry, the Service (visit recording, batch runs, notifications),
// the Store interface (persistence), and domain models.
package triage
