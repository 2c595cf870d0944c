// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	businessflow "github.com/numbay/numbay/business_flow"
	"gopkg.in/natefinch/lumberjack.v2"
)

// HoldSweeper periodically reclaims temporary holds whose grace period has
// elapsed, returning their numbers to the available pool.
type HoldSweeper struct {
	sweeper  businessflow.SweeperFlow
	grace    time.Duration
	interval time.Duration
	logger   *log.Logger
	logFile  io.Closer
}

func NewHoldSweeper(sweeper businessflow.SweeperFlow, grace, interval time.Duration, logPath string) *HoldSweeper {
	if interval <= 0 {
		interval = time.Minute
	}

	s := &HoldSweeper{
		sweeper:  sweeper,
		grace:    grace,
		interval: interval,
	}
	s.initLogger(logPath)
	return s
}

// initLogger writes to stdout plus a rotated file so sweep history survives
// container restarts without growing unbounded
func (s *HoldSweeper) initLogger(logPath string) {
	if logPath == "" {
		s.logger = log.New(os.Stdout, "sweeper ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return
	}
	rotated := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}
	s.logFile = rotated
	mw := io.MultiWriter(os.Stdout, rotated)
	s.logger = log.New(mw, "sweeper ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the sweep loop in a background goroutine and returns a stop
// function. The first run is jittered so multiple replicas don't sweep in
// lockstep.
func (s *HoldSweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		jitter := time.Duration(rand.Int63n(int64(s.interval / 10)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter):
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		if s.logFile != nil {
			_ = s.logFile.Close()
		}
	}
}

func (s *HoldSweeper) runOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	released, err := s.sweeper.SweepExpired(ctx, s.grace)
	if err != nil {
		s.logger.Printf("sweep failed: %v", err)
		return
	}
	if released > 0 {
		s.logger.Printf("released %d expired holds", released)
	}
}
