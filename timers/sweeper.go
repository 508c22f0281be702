package timers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/engine"
	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
	"github.com/skyagarwal/mangwale-flow/persistence"
	"github.com/skyagarwal/mangwale-flow/util"
)

// Sweeper polls the wait-timeout delay queue and fires each expired
// conversation through the engine. Effects produced by a timeout turn go to
// deliver, since there is no inbound request to respond on.
type Sweeper struct {
	delayQueue persistence.DelayQueue
	engine     *engine.FlowEngine
	deliver    func(*model.OutboundEffects)
	tw         *util.TickWorker
}

func NewSweeper(delayQueue persistence.DelayQueue, eng *engine.FlowEngine, interval time.Duration, deliver func(*model.OutboundEffects), wg *sync.WaitGroup) *Sweeper {
	s := &Sweeper{
		delayQueue: delayQueue,
		engine:     eng,
		deliver:    deliver,
	}
	s.tw = util.NewTickWorker("wait-timeout-sweeper", interval, s.sweep, wg)
	return s
}

func (s *Sweeper) Start() {
	s.tw.Start()
}

func (s *Sweeper) Stop() {
	s.tw.Stop()
}

func (s *Sweeper) sweep() {
	conversations, err := s.delayQueue.Pop(persistence.WAIT_TIMEOUT_QUEUE)
	if err != nil {
		logger.Error("error polling wait timeouts", zap.Error(err))
		return
	}
	for _, conversationId := range conversations {
		fx, err := s.engine.HandleTimeout(context.Background(), conversationId)
		if err != nil {
			logger.Error("timeout turn failed", zap.String("conversation", conversationId), zap.Error(err))
			continue
		}
		if s.deliver != nil && len(fx.Messages) > 0 {
			s.deliver(fx)
		}
	}
}
