package util

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/logger"
)

// TickWorker runs fn on a fixed interval until stopped. The engine itself
// owns no timers; periodic work like the wait-deadline sweep runs here.
type TickWorker struct {
	name         string
	tickInterval time.Duration
	stop         chan struct{}
	wg           *sync.WaitGroup
	fn           func()
	running      bool
}

func NewTickWorker(name string, interval time.Duration, fn func(), wg *sync.WaitGroup) *TickWorker {
	return &TickWorker{
		name:         name,
		tickInterval: interval,
		stop:         make(chan struct{}),
		wg:           wg,
		fn:           fn,
	}
}

func (tw *TickWorker) Start() {
	if tw.running {
		return
	}
	ticker := time.NewTicker(tw.tickInterval)
	tw.wg.Add(1)
	go func() {
		defer tw.wg.Done()
		for {
			select {
			case <-ticker.C:
				tw.fn()
			case <-tw.stop:
				ticker.Stop()
				return
			}
		}
	}()
	tw.running = true
	logger.Info("tick worker started", zap.String("worker", tw.name))
}

func (tw *TickWorker) Stop() {
	if !tw.running {
		return
	}
	tw.running = false
	close(tw.stop)
	logger.Info("tick worker stopped", zap.String("worker", tw.name))
}

func (tw *TickWorker) IsRunning() bool {
	return tw.running
}
