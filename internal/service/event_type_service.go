package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/melnyresults/booking-api/internal/models"
	appErrors "github.com/melnyresults/booking-api/pkg/errors"
)

type eventTypeLister interface {
	ListByHost(ctx context.Context, hostID string) ([]models.EventType, error)
	GetBySlug(ctx context.Context, hostID, slug string) (*models.EventType, error)
}

// EventTypeService reads the bookable meeting definitions a host offers.
type EventTypeService struct {
	hosts      hostReader
	eventTypes eventTypeLister
	logger     *zap.Logger
}

// NewEventTypeService constructs the service.
func NewEventTypeService(hosts hostReader, eventTypes eventTypeLister, logger *zap.Logger) *EventTypeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventTypeService{hosts: hosts, eventTypes: eventTypes, logger: logger}
}

// ListForHost returns the host and every event type it offers.
func (s *EventTypeService) ListForHost(ctx context.Context, hostSlug string) (*models.Host, []models.EventType, error) {
	host, err := s.hosts.GetBySlug(ctx, hostSlug)
	if err != nil {
		return nil, nil, notFoundOr(err, "host not found")
	}
	eventTypes, err := s.eventTypes.ListByHost(ctx, host.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list event types")
	}
	return host, eventTypes, nil
}

// GetForHost returns one event type of a host by slug.
func (s *EventTypeService) GetForHost(ctx context.Context, hostSlug, eventTypeSlug string) (*models.Host, *models.EventType, error) {
	host, err := s.hosts.GetBySlug(ctx, hostSlug)
	if err != nil {
		return nil, nil, notFoundOr(err, "host not found")
	}
	eventType, err := s.eventTypes.GetBySlug(ctx, host.ID, eventTypeSlug)
	if err != nil {
		return nil, nil, notFoundOr(err, "event type not found")
	}
	return host, eventType, nil
}
