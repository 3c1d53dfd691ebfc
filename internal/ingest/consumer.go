// Package ingest consumes profile-change events from Kafka and feeds them to
// the orchestration driver. Offsets commit after a poll's events are
// handled; redelivery on crash is acceptable because every action is
// guarded by markers on the profile.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"traitsync/internal/orchestrate"
	"traitsync/internal/profile"
	id "traitsync/pkg/domain"
)

// Handler is the part of the driver the consumer needs.
type Handler interface {
	HandleBatch(ctx context.Context, events []*profile.Event) ([]*orchestrate.Outcome, error)
}

// Consumer runs the poll loop.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// Config selects the topic and consumer group.
type Config struct {
	Brokers []string
	Topic   string
	Group   string
}

func NewConsumer(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(cfg.Group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is cancelled. Malformed records are logged and
// dropped; they would never become valid on redelivery.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("ingest.fetch.error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.String("error", err.Error()))
		})

		var events []*profile.Event
		fetches.EachRecord(func(record *kgo.Record) {
			ev, err := DecodeEvent(record.Value)
			if err != nil {
				c.logger.Warn("ingest.event.malformed",
					slog.String("topic", record.Topic),
					slog.Int64("offset", record.Offset),
					slog.String("error", err.Error()))
				return
			}
			events = append(events, ev)
		})

		if len(events) > 0 {
			if _, err := c.handler.HandleBatch(ctx, events); err != nil {
				// Infrastructure failure: do not commit, let the group
				// redeliver the poll.
				c.logger.Error("ingest.batch.failed", slog.String("error", err.Error()))
				continue
			}
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.Error("ingest.commit.failed", slog.String("error", err.Error()))
		}
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}

// Wire shapes for the change-event envelope.

type segmentDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type profileDoc struct {
	ID          string         `json:"id"`
	ExternalID  string         `json:"external_id"`
	AnonymousID string         `json:"anonymous_id"`
	Email       string         `json:"email"`
	Domain      string         `json:"domain"`
	Name        string         `json:"name"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	LastKnownIP string         `json:"last_known_ip"`
	Traits      map[string]any `json:"traits"`
}

type accountDoc struct {
	ID         string         `json:"id"`
	ExternalID string         `json:"external_id"`
	Domain     string         `json:"domain"`
	Name       string         `json:"name"`
	Traits     map[string]any `json:"traits"`
}

type envelope struct {
	TenantID        string       `json:"tenant_id"`
	Profile         profileDoc   `json:"profile"`
	Account         *accountDoc  `json:"account,omitempty"`
	Segments        []segmentDoc `json:"segments"`
	AccountSegments []segmentDoc `json:"account_segments"`
}

// DecodeEvent parses one change-event envelope. The batch replay endpoint
// shares it so HTTP replays and Kafka deliveries speak the same format.
func DecodeEvent(raw []byte) (*profile.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.toEvent()
}

func (env *envelope) toEvent() (*profile.Event, error) {
	tenant, err := id.ParseTenantID(env.TenantID)
	if err != nil {
		return nil, err
	}

	subject := &profile.Profile{
		ExternalID:  env.Profile.ExternalID,
		AnonymousID: env.Profile.AnonymousID,
		Email:       env.Profile.Email,
		Domain:      env.Profile.Domain,
		Name:        env.Profile.Name,
		FirstName:   env.Profile.FirstName,
		LastName:    env.Profile.LastName,
		LastKnownIP: env.Profile.LastKnownIP,
		Traits:      env.Profile.Traits,
	}
	if env.Profile.ID != "" {
		pid, err := id.ParseProfileID(env.Profile.ID)
		if err != nil {
			return nil, err
		}
		subject.ID = pid
	}

	ev := &profile.Event{
		Tenant:          tenant,
		Profile:         subject,
		Segments:        toSegments(env.Segments),
		AccountSegments: toSegments(env.AccountSegments),
	}

	if env.Account != nil {
		account := &profile.Account{
			ExternalID: env.Account.ExternalID,
			Domain:     env.Account.Domain,
			Name:       env.Account.Name,
			Traits:     env.Account.Traits,
		}
		if env.Account.ID != "" {
			aid, err := id.ParseAccountID(env.Account.ID)
			if err != nil {
				return nil, err
			}
			account.ID = aid
		}
		ev.Account = account
	}
	return ev, nil
}

func toSegments(docs []segmentDoc) []profile.Segment {
	if len(docs) == 0 {
		return nil
	}
	segments := make([]profile.Segment, len(docs))
	for i, doc := range docs {
		segments[i] = profile.Segment{ID: doc.ID, Name: doc.Name}
	}
	return segments
}
