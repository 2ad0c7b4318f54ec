// Package consumer lê os eventos da liga no Kafka, guarda o último payload de
// cada partida/temporada no Redis e repassa a atualização ao live-service via
// Redis Pub/Sub. Mensagem que não decodifica vai para a DLQ.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/pkg/contracts/events"
	"github.com/radieske/league-bet-platform/pkg/contracts/live"
	"github.com/radieske/league-bet-platform/pkg/contracts/topics"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

const maxAttempts = 3

// errPoison marca mensagens que nunca vão processar (vão para a DLQ)
var errPoison = errors.New("poison message")

// Processor consome match_finished e standings_updated
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	DLQ     MessageWriter
	Redis   *redis.Client
	Channel string
	TTL     time.Duration

	RetryBase time.Duration // espera antes da 2ª tentativa; dobra a cada falha

	// tópicos (vazio usa os nomes padrão)
	MatchTopic     string
	StandingsTopic string

	OnConsumed  func()       // métricas (counter++)
	OnBroadcast func()       // métricas
	OnDLQ       func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo. O offset só é confirmado depois que
// a mensagem foi processada ou enviada para a DLQ. A escrita na DLQ é repetida
// até dar certo: buscar a próxima mensagem antes disso confirmaria o offset
// dela e pularia esta.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.handleWithRetry(ctx, m); err != nil {
			if err := p.toDLQUntilDone(ctx, m, err); err != nil {
				return err // contexto cancelado; sem commit, a mensagem volta
			}
		}

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Error(err))
			p.fail("commit")
		}
	}
}

// handleWithRetry repete falhas transitórias (Redis) até maxAttempts; mensagem
// envenenada não é repetida
func (p *Processor) handleWithRetry(ctx context.Context, m kafka.Message) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = p.Handle(ctx, m); err == nil || errors.Is(err, errPoison) {
			return err
		}
		p.Log.Warn("event handling failed", zap.String("topic", m.Topic), zap.Int("attempt", attempt), zap.Error(err))
		p.fail("handle")
		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.backoff(attempt)):
		}
	}
	return err
}

func (p *Processor) backoff(attempt int) time.Duration {
	base := p.RetryBase
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	return base * time.Duration(1<<(attempt-1))
}

// Handle processa uma mensagem; erros que envolvem errPoison não adiantam retry
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	switch m.Topic {
	case or(p.MatchTopic, topics.MatchFinished):
		var ev events.MatchFinished
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			return fmt.Errorf("%w: decode %s: %v", errPoison, m.Topic, err)
		}
		if ev.MatchID == "" {
			return fmt.Errorf("%w: %s without match_id", errPoison, m.Topic)
		}
		return p.store(ctx, live.MatchKey(ev.MatchID), live.MatchChannel(ev.MatchID), live.TypeMatchFinished, m.Value)

	case or(p.StandingsTopic, topics.StandingsUpdated):
		var ev events.StandingsUpdated
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			return fmt.Errorf("%w: decode %s: %v", errPoison, m.Topic, err)
		}
		if ev.Season == "" {
			return fmt.Errorf("%w: %s without season", errPoison, m.Topic)
		}
		return p.store(ctx, live.StandingsKey(ev.Season), live.StandingsChannel, live.TypeStandingsUpdated, m.Value)
	}
	return fmt.Errorf("%w: unexpected topic %q", errPoison, m.Topic)
}

// store grava o último payload e faz o broadcast
func (p *Processor) store(ctx context.Context, key, channel, typ string, payload []byte) error {
	if err := p.Redis.Set(ctx, key, payload, p.TTL).Err(); err != nil {
		p.fail("cache")
		return fmt.Errorf("cache %s: %w", key, err)
	}

	b, err := json.Marshal(live.Update{Channel: channel, Type: typ, Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: encode update: %v", errPoison, err)
	}
	if err := p.Redis.Publish(ctx, p.Channel, b).Err(); err != nil {
		// o cache já está certo; o cliente pega no próximo GET
		p.Log.Warn("broadcast publish failed", zap.String("channel", channel), zap.Error(err))
		p.fail("broadcast")
		return nil
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
	return nil
}

// toDLQUntilDone só retorna erro quando ctx termina
func (p *Processor) toDLQUntilDone(ctx context.Context, m kafka.Message, cause error) error {
	for attempt := 1; ; attempt++ {
		err := p.toDLQ(ctx, m, cause)
		if err == nil {
			return nil
		}
		p.Log.Error("dlq write failed", zap.String("topic", m.Topic), zap.Int("attempt", attempt), zap.Error(err))
		p.fail("dlq")

		wait := p.backoff(min(attempt, 6))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message, cause error) error {
	p.Log.Warn("sending message to dlq", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(cause))
	err := p.DLQ.WriteMessages(ctx, kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(m.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
		Time: time.Now(),
	})
	if err == nil && p.OnDLQ != nil {
		p.OnDLQ()
	}
	return err
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
