// Package cleanup is the room lifecycle sweeper: the external collaborator
// that retires rooms nobody will finish. It marks stale rooms abandoned
// and deletes terminal rooms after a retention period.
package cleanup

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"whobible/backend/internal/config"
	"whobible/backend/internal/models"
	"whobible/backend/internal/store"
)

type Sweeper struct {
	Store store.RemoteStore
	Log   *zap.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewSweeper(st store.RemoteStore, log *zap.Logger) *Sweeper {
	return &Sweeper{Store: st, Log: log, Now: time.Now}
}

// Schedule registers the sweep on a cron runner and starts it. Callers
// own the returned cron and stop it on shutdown.
func (s *Sweeper) Schedule() (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(config.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.Log.Error("room sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// Sweep walks every room once. A waiting room past its TTL, or an active
// room past the session TTL, becomes abandoned; completed and abandoned
// rooms past retention are deleted outright.
func (s *Sweeper) Sweep(ctx context.Context) error {
	rooms := make(map[string]models.Room)
	found, err := s.Store.ReadOnce(ctx, "rooms", &rooms)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	now := s.Now()
	var abandoned, deleted int
	for code, room := range rooms {
		age := now.Sub(time.UnixMilli(room.CreatedAt))
		switch room.Status {
		case models.StatusWaiting:
			if age > config.WaitingRoomTTL {
				if err := s.abandon(ctx, code); err != nil {
					return err
				}
				abandoned++
			}
		case models.StatusActive:
			if age > config.ActiveRoomTTL {
				if err := s.abandon(ctx, code); err != nil {
					return err
				}
				abandoned++
			}
		case models.StatusCompleted, models.StatusAbandoned:
			if age > config.TerminalRetention {
				if err := s.Store.Delete(ctx, "rooms/"+code); err != nil {
					return err
				}
				deleted++
			}
		}
	}

	if abandoned > 0 || deleted > 0 {
		s.Log.Info("room sweep finished",
			zap.Int("abandoned", abandoned),
			zap.Int("deleted", deleted),
		)
	}
	return nil
}

func (s *Sweeper) abandon(ctx context.Context, code string) error {
	return s.Store.Write(ctx, "rooms/"+code+"/status", models.StatusAbandoned)
}
