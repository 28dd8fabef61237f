// Package jitter randomizes when a scheduled run actually fires, so
// independently scheduled instances do not all hit the platform at the same
// moment.
package jitter

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Poll the wall clock instead of sleeping the whole delay: cancellation
	// is observed within one tick and clock adjustments mid-wait are
	// tolerated.
	defaultPollInterval = time.Second

	MinDelayMinutes = 1
	MaxDelayMinutes = 120
)

// Gate delays a run by a uniformly random number of minutes in
// [0, maxMinutes].
type Gate struct {
	maxMinutes   int
	pollInterval time.Duration
	now          func() time.Time
	intn         func(n int) int
}

// NewGate builds a gate. maxMinutes must be within 1-120.
func NewGate(maxMinutes int) (*Gate, error) {
	if maxMinutes < MinDelayMinutes || maxMinutes > MaxDelayMinutes {
		return nil, fmt.Errorf("max jitter must be %d-%d minutes (got %d)",
			MinDelayMinutes, MaxDelayMinutes, maxMinutes)
	}
	return &Gate{
		maxMinutes:   maxMinutes,
		pollInterval: defaultPollInterval,
		now:          time.Now,
		intn:         rand.Intn,
	}, nil
}

// Wait blocks until the randomly chosen target time. A zero delay proceeds
// immediately and still logs. Cancellation aborts the wait within one poll
// tick and propagates.
func (g *Gate) Wait(ctx context.Context) error {
	delay := time.Duration(g.intn(g.maxMinutes+1)) * time.Minute
	target := g.now().Add(delay)

	log.WithFields(log.Fields{
		"delay":  delay,
		"target": target.Format("15:04:05"),
	}).Info("Jitter wait started")

	if delay == 0 {
		log.Info("Jitter is zero, proceeding immediately")
		return nil
	}

	for g.now().Before(target) {
		t := time.NewTimer(g.pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			log.Info("Jitter wait aborted")
			return ctx.Err()
		case <-t.C:
		}
	}

	log.Info("Jitter wait complete, starting issuance")
	return nil
}
