package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/melnyresults/booking-api/internal/dto"
	"github.com/melnyresults/booking-api/internal/models"
	"github.com/melnyresults/booking-api/pkg/response"
)

type eventTypeService interface {
	ListForHost(ctx context.Context, hostSlug string) (*models.Host, []models.EventType, error)
	GetForHost(ctx context.Context, hostSlug, eventTypeSlug string) (*models.Host, *models.EventType, error)
}

// EventTypeHandler exposes the public booking-page catalogue.
type EventTypeHandler struct {
	service eventTypeService
}

// NewEventTypeHandler builds a new handler.
func NewEventTypeHandler(service eventTypeService) *EventTypeHandler {
	return &EventTypeHandler{service: service}
}

// List godoc
// @Summary List a host's event types
// @Tags EventTypes
// @Produce json
// @Param slug path string true "Host slug"
// @Success 200 {object} response.Envelope
// @Router /hosts/{slug}/event-types [get]
func (h *EventTypeHandler) List(c *gin.Context) {
	host, eventTypes, err := h.service.ListForHost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewEventTypeList(host, eventTypes), nil)
}

// Get godoc
// @Summary Get one event type of a host
// @Tags EventTypes
// @Produce json
// @Param slug path string true "Host slug"
// @Param eventTypeSlug path string true "Event type slug"
// @Success 200 {object} response.Envelope
// @Router /hosts/{slug}/event-types/{eventTypeSlug} [get]
func (h *EventTypeHandler) Get(c *gin.Context) {
	_, eventType, err := h.service.GetForHost(c.Request.Context(), c.Param("slug"), c.Param("eventTypeSlug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewEventTypeItem(eventType), nil)
}
