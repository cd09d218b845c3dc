// Package pubsub emits collaborator notifications: counter changes for live
// dashboards and cancellation facts for the notification service. This core
// only publishes; delivery and subscriptions belong to the collaborators.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticketgate/internal/ledger"
	"ticketgate/internal/lib/logger/sl"
	"ticketgate/internal/models"
)

const (
	channelPrefix  = "ticketgate:"
	publishTimeout = 5 * time.Second

	EventCountersChanged  = "counters.changed"
	EventBookingCancelled = "booking.cancelled"
)

// Publisher is the outbound notification boundary.
type Publisher interface {
	CounterChanged(ctx context.Context, unit models.UnitRef, counters ledger.Counters)
	BookingCancelled(ctx context.Context, booking *models.Booking)
}

type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

type counterPayload struct {
	EventID   string `json:"event_id"`
	CohortID  string `json:"cohort_id,omitempty"`
	Capacity  int    `json:"capacity"`
	Reserved  int    `json:"reserved"`
	CheckedIn int    `json:"checked_in"`
	Available int    `json:"available"`
}

type cancelPayload struct {
	BookingID string `json:"booking_id"`
	EventID   string `json:"event_id"`
	CohortID  string `json:"cohort_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Redis publishes notifications on per-event Redis channels.
type Redis struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedis creates the publisher and verifies connectivity.
func NewRedis(ctx context.Context, addr, password string, db int, log *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{client: client, log: log}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) CounterChanged(ctx context.Context, unit models.UnitRef, counters ledger.Counters) {
	p := counterPayload{
		EventID:   unit.EventID.String(),
		Capacity:  counters.Capacity,
		Reserved:  counters.Reserved,
		CheckedIn: counters.CheckedIn,
		Available: counters.Available(),
	}
	if unit.CohortID != nil {
		p.CohortID = unit.CohortID.String()
	}

	r.publish(ctx, unit.EventID.String(), EventCountersChanged, p)
}

func (r *Redis) BookingCancelled(ctx context.Context, booking *models.Booking) {
	p := cancelPayload{
		BookingID: booking.ID.String(),
		EventID:   booking.EventID.String(),
		Quantity:  booking.Quantity,
	}
	if booking.CohortID != nil {
		p.CohortID = booking.CohortID.String()
	}

	r.publish(ctx, booking.EventID.String(), EventBookingCancelled, p)
}

// publish is best effort: a lost notification never fails the operation that
// triggered it.
func (r *Redis) publish(ctx context.Context, channelSuffix, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("failed to marshal notification payload", sl.Err(err))
		return
	}

	body, err := json.Marshal(message{Event: event, Data: data, At: time.Now().Unix()})
	if err != nil {
		r.log.Error("failed to marshal notification", sl.Err(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err = r.client.Publish(ctx, channelPrefix+channelSuffix, body).Err(); err != nil {
		r.log.Error("failed to publish notification",
			slog.String("event", event), sl.Err(err))
	}
}

// Noop discards notifications; used when Redis is disabled.
type Noop struct{}

func (Noop) CounterChanged(context.Context, models.UnitRef, ledger.Counters) {}

func (Noop) BookingCancelled(context.Context, *models.Booking) {}
