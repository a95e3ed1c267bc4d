package gcal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/melnyresults/booking-api/internal/models"
	"github.com/melnyresults/booking-api/pkg/config"
	"github.com/melnyresults/booking-api/pkg/interval"
)

// ErrNotConnected marks a host without a linked external calendar.
// Callers degrade to internal bookings only.
var ErrNotConnected = errors.New("no external calendar connected")

type connectionReader interface {
	GetByHost(ctx context.Context, hostID string) (*models.CalendarConnection, error)
}

// Provider reads busy intervals from and writes events to a host's
// Google Calendar. Every remote call is bounded by the configured
// timeout; callers never wait longer than that for busy data.
type Provider struct {
	oauth       *oauth2.Config
	connections connectionReader
	timeout     time.Duration
	logger      *zap.Logger
}

// NewProvider builds a Google Calendar provider. Returns nil when the
// OAuth client is not configured; callers treat a nil provider as "no
// external calendar anywhere".
func NewProvider(cfg config.GoogleConfig, timeout time.Duration, connections connectionReader, logger *zap.Logger) *Provider {
	if !cfg.CalendarEnabled() {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		connections: connections,
		timeout:     timeout,
		logger:      logger,
	}
}

// Connected reports whether the host has a linked calendar.
func (p *Provider) Connected(ctx context.Context, hostID string) (bool, error) {
	_, err := p.connections.GetByHost(ctx, hostID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup calendar connection: %w", err)
	}
	return true, nil
}

// BusyIntervals queries the FreeBusy endpoint for the host's calendar
// over [from, to). Returns ErrNotConnected when the host has no link.
func (p *Provider) BusyIntervals(ctx context.Context, hostID string, from, to time.Time) ([]interval.Span, error) {
	srv, conn, err := p.service(ctx, hostID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := srv.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: conn.CalendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	info, ok := resp.Calendars[conn.CalendarID]
	if !ok {
		return nil, nil
	}

	spans := make([]interval.Span, 0, len(info.Busy))
	for _, period := range info.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			continue
		}
		spans = append(spans, interval.Span{Start: start.UTC(), End: end.UTC()})
	}
	return spans, nil
}

// CreateEvent mirrors a committed booking into the host's calendar and
// returns the created event id.
func (p *Provider) CreateEvent(ctx context.Context, hostID string, booking *models.Booking, eventType *models.EventType) (string, error) {
	srv, conn, err := p.service(ctx, hostID)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	event := &calendar.Event{
		Summary:     fmt.Sprintf("%s with %s", eventType.Title, booking.GuestName),
		Description: fmt.Sprintf("Booked via melnyresults.com (%s)", booking.GuestEmail),
		Start:       &calendar.EventDateTime{DateTime: booking.StartAt.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: booking.EndAt.UTC().Format(time.RFC3339)},
		Attendees:   []*calendar.EventAttendee{{Email: booking.GuestEmail, DisplayName: booking.GuestName}},
	}

	created, err := srv.Events.Insert(conn.CalendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

func (p *Provider) service(ctx context.Context, hostID string) (*calendar.Service, *models.CalendarConnection, error) {
	conn, err := p.connections.GetByHost(ctx, hostID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotConnected
		}
		return nil, nil, fmt.Errorf("lookup calendar connection: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(conn.Token, &token); err != nil {
		return nil, nil, fmt.Errorf("decode calendar token: %w", err)
	}

	client := p.oauth.Client(ctx, &token)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, nil, fmt.Errorf("build calendar client: %w", err)
	}
	return srv, conn, nil
}
