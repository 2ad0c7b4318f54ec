// Package producer publica os eventos da liga no Kafka.
package producer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/shared/kafka"
	"github.com/radieske/league-bet-platform/pkg/contracts/events"
)

// Publisher é o que advancer e betting enxergam; Noop quando não há Kafka
type Publisher interface {
	PublishMatchFinished(ctx context.Context, e events.MatchFinished) error
	PublishBetsSettled(ctx context.Context, e events.BetsSettled) error
	PublishStandingsUpdated(ctx context.Context, e events.StandingsUpdated) error
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	Close() error
}

// Topics são os nomes dos tópicos de saída (vêm do config)
type Topics struct {
	MatchFinished    string
	BetsSettled      string
	StandingsUpdated string
	BetPlaced        string
}

type KafkaPublisher struct {
	log     *zap.Logger
	topics  Topics
	writers map[string]*kafka.Writer
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher abre um writer por tópico
func NewKafkaPublisher(log *zap.Logger, brokers string, t Topics) *KafkaPublisher {
	p := &KafkaPublisher{log: log, topics: t, writers: make(map[string]*kafka.Writer)}
	for _, topic := range []string{t.MatchFinished, t.BetsSettled, t.StandingsUpdated, t.BetPlaced} {
		p.writers[topic] = kafka.NewWriter(brokers, topic)
	}
	return p
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, v any) error {
	if err := kafka.WriteJSON(ctx, p.writers[topic], key, v); err != nil {
		p.log.Error("failed to publish event", zap.String("topic", topic), zap.String("key", key), zap.Error(err))
		return err
	}
	p.log.Debug("event published", zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (p *KafkaPublisher) PublishMatchFinished(ctx context.Context, e events.MatchFinished) error {
	return p.publish(ctx, p.topics.MatchFinished, e.MatchID, e)
}

func (p *KafkaPublisher) PublishBetsSettled(ctx context.Context, e events.BetsSettled) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	return p.publish(ctx, p.topics.BetsSettled, e.MatchID, e)
}

func (p *KafkaPublisher) PublishStandingsUpdated(ctx context.Context, e events.StandingsUpdated) error {
	return p.publish(ctx, p.topics.StandingsUpdated, e.Season, e)
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	return p.publish(ctx, p.topics.BetPlaced, e.MatchID, e)
}

func (p *KafkaPublisher) Close() error {
	var errs []error
	for _, w := range p.writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// Noop descarta os eventos (KAFKA_BROKERS vazio)
type Noop struct{}

var _ Publisher = Noop{}

func (Noop) PublishMatchFinished(context.Context, events.MatchFinished) error       { return nil }
func (Noop) PublishBetsSettled(context.Context, events.BetsSettled) error           { return nil }
func (Noop) PublishStandingsUpdated(context.Context, events.StandingsUpdated) error { return nil }
func (Noop) PublishBetPlaced(context.Context, events.BetPlaced) error               { return nil }
func (Noop) Close() error                                                           { return nil }
