// Package events re-exports the platform event bus so modules import a single
// events package for both infrastructure and domain event definitions.
package events

import (
	platformevents "lead_routing_backend/platform/events"
	"lead_routing_backend/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
