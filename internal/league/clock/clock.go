// Package clock mantém a data virtual da liga. A instância é criada no main e
// injetada em quem precisa; não existe relógio global.
package clock

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/radieske/league-bet-platform/internal/league/model"
	"github.com/radieske/league-bet-platform/internal/league/store"
)

type Unit string

const (
	UnitMinute Unit = "minute"
	UnitHour   Unit = "hour"
	UnitDay    Unit = "day"
	UnitWeek   Unit = "week"
)

// ParseUnit aceita singular ou plural, sem diferenciar maiúsculas
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	switch u {
	case UnitMinute, UnitHour, UnitDay, UnitWeek:
		return u, nil
	}
	return "", fmt.Errorf("%w: unknown time unit %q", model.ErrInvalidArgument, s)
}

// Duration converte amount unidades; erro quando não cabe em time.Duration
func (u Unit) Duration(amount int) (time.Duration, error) {
	var base time.Duration
	switch u {
	case UnitMinute:
		base = time.Minute
	case UnitHour:
		base = time.Hour
	case UnitDay:
		base = 24 * time.Hour
	case UnitWeek:
		base = 7 * 24 * time.Hour
	}
	if base == 0 {
		return 0, fmt.Errorf("%w: unknown time unit %q", model.ErrInvalidArgument, string(u))
	}
	if amount < 0 || int64(amount) > math.MaxInt64/int64(base) {
		return 0, fmt.Errorf("%w: %d %ss is out of range", model.ErrInvalidArgument, amount, string(u))
	}
	return time.Duration(amount) * base, nil
}

// LeagueClock é monotônico: nenhum método move a data para trás
type LeagueClock struct {
	mu    sync.RWMutex
	now   time.Time
	start time.Time
	p     store.Clock
}

func New(p store.Clock, start time.Time) *LeagueClock {
	start = start.UTC()
	return &LeagueClock{now: start, start: start, p: p}
}

// Load restaura a data persistida; sem registro, grava e usa a data inicial
func (c *LeagueClock) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok, err := c.p.LoadClock(ctx)
	if err != nil {
		return fmt.Errorf("load league clock: %w", err)
	}
	if !ok {
		if err := c.p.SaveClock(ctx, c.start); err != nil {
			return &model.TransactionError{Op: "save league clock", Err: err}
		}
		c.now = c.start
		return nil
	}
	c.now = t.UTC()
	return nil
}

func (c *LeagueClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *LeagueClock) Advance(ctx context.Context, amount int, unit Unit) (time.Time, error) {
	if amount <= 0 {
		return c.Now(), fmt.Errorf("%w: amount must be positive, got %d", model.ErrInvalidArgument, amount)
	}
	if _, err := ParseUnit(string(unit)); err != nil {
		return c.Now(), err
	}
	d, err := unit.Duration(amount)
	if err != nil {
		return c.Now(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.now.Add(d)
	if next.Before(c.now) {
		return c.now, fmt.Errorf("%w: advancing %d %ss overflows the league date", model.ErrInvalidArgument, amount, string(unit))
	}
	return c.set(ctx, next)
}

// AdvanceTo move o relógio para t; t igual à data atual é aceito sem efeito
func (c *LeagueClock) AdvanceTo(ctx context.Context, t time.Time) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t = t.UTC()
	if t.Before(c.now) {
		return c.now, &model.StateError{
			Entity:  "league clock",
			ID:      c.now.Format(time.RFC3339),
			Current: c.now.Format(time.RFC3339),
			Want:    "a target at or after the current date, got " + t.Format(time.RFC3339),
		}
	}
	if t.Equal(c.now) {
		return c.now, nil
	}
	return c.set(ctx, t)
}

// set persiste antes de publicar o novo valor em memória
func (c *LeagueClock) set(ctx context.Context, t time.Time) (time.Time, error) {
	if err := c.p.SaveClock(ctx, t); err != nil {
		return c.now, &model.TransactionError{Op: "save league clock", Err: err}
	}
	c.now = t
	return c.now, nil
}
