package agent

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/analytics"
	"github.com/skyagarwal/mangwale-flow/catalog"
	"github.com/skyagarwal/mangwale-flow/config"
	"github.com/skyagarwal/mangwale-flow/engine"
	"github.com/skyagarwal/mangwale-flow/executor"
	"github.com/skyagarwal/mangwale-flow/expression"
	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
	"github.com/skyagarwal/mangwale-flow/persistence"
	"github.com/skyagarwal/mangwale-flow/persistence/inmem"
	"github.com/skyagarwal/mangwale-flow/persistence/redis"
	"github.com/skyagarwal/mangwale-flow/rest"
	"github.com/skyagarwal/mangwale-flow/timers"
	"github.com/skyagarwal/mangwale-flow/util"
)

const DEFAULT_SWEEP_INTERVAL = 1 * time.Second
const DEFAULT_NOTIFY_CAPACITY = 512

type Agent struct {
	Config       config.Config
	store        persistence.SessionStore
	delayQueue   persistence.DelayQueue
	catalog      *catalog.Catalog
	loader       *catalog.Loader
	registry     *executor.Registry
	engine       *engine.FlowEngine
	httpServer   *rest.Server
	sweeper      *timers.Sweeper
	notifyWorker *util.Worker
	whatsapp     *executor.WhatsAppClient
	shutdown     bool
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config: conf,
	}
	setup := []func() error{
		a.setupLogging,
		a.setupStorage,
		a.setupCatalog,
		a.setupExecutors,
		a.setupEngine,
		a.setupSweeper,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupLogging() error {
	if a.Config.LogLevel != "" {
		if err := logger.InitLogger(a.Config.LogLevel); err != nil {
			return err
		}
	}
	return analytics.InitDataCollector(a.Config.AnalyticsConfig)
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_INMEM:
		a.store = inmem.NewInMemorySessionStore()
		a.delayQueue = inmem.NewInMemoryDelayQueue()
	default:
		a.store = redis.NewRedisSessionStore(a.Config.RedisConfig)
		a.delayQueue = redis.NewRedisDelayQueue(a.Config.RedisConfig)
	}
	return nil
}

func (a *Agent) setupCatalog() error {
	a.catalog = catalog.NewCatalog()
	a.loader = catalog.NewLoader()
	if a.Config.FlowsDir == "" {
		return nil
	}
	defs, err := a.loader.LoadDir(a.Config.FlowsDir)
	if err != nil {
		return err
	}
	if err := a.catalog.Load(defs); err != nil {
		return err
	}
	logger.Info("flow catalog loaded", zap.Int("flows", a.catalog.Size()), zap.String("dir", a.Config.FlowsDir))
	return nil
}

func (a *Agent) setupExecutors() error {
	backend := executor.NewBackendClient(a.Config.Backend.BaseUrl, msOrDefault(a.Config.Backend.TimeoutMs, 5000))
	a.whatsapp = executor.NewWhatsAppClient(a.Config.WhatsApp.BaseUrl, a.Config.WhatsApp.ApiKey, msOrDefault(a.Config.WhatsApp.TimeoutMs, 5000))
	llm := executor.NewLLMClient(a.Config.LLM.BaseUrl, a.Config.LLM.ApiKey, a.Config.LLM.Model, msOrDefault(a.Config.LLM.TimeoutMs, 30000))

	capacity := a.Config.NotifyQueueCapacity
	if capacity <= 0 {
		capacity = DEFAULT_NOTIFY_CAPACITY
	}
	a.notifyWorker = util.NewWorker("whatsapp-notify", &a.wg, executor.NotifyHandler(a.whatsapp), capacity)

	a.registry = executor.NewRegistry()
	a.registry.Register("response", executor.NewResponseExecutor())
	a.registry.Register("session", executor.NewSessionExecutor())
	a.registry.Register("php_api", executor.NewBackendExecutor(backend))
	a.registry.Register("auth", executor.NewAuthExecutor(backend))
	a.registry.Register("llm", executor.NewLLMExecutor(llm))
	a.registry.Register("address", executor.NewAddressExecutor(llm))
	a.registry.Register("whatsapp_notify", executor.NewNotifyExecutor(a.whatsapp, a.notifyWorker.Sender()))
	return nil
}

func (a *Agent) setupEngine() error {
	runner := engine.NewRunner(a.registry, expression.NewEvaluator())
	a.engine = engine.NewFlowEngine(a.catalog, runner, a.store, a.delayQueue)
	a.engine.SetFallbackMessage(a.Config.FallbackMessage)
	return nil
}

func (a *Agent) setupSweeper() error {
	interval := DEFAULT_SWEEP_INTERVAL
	if a.Config.SweepIntervalMs > 0 {
		interval = time.Duration(a.Config.SweepIntervalMs) * time.Millisecond
	}
	a.sweeper = timers.NewSweeper(a.delayQueue, a.engine, interval, a.deliverEffects, &a.wg)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.engine, a.catalog, a.loader, a.Config.FlowsDir, a.store)
	return err
}

// deliverEffects pushes messages produced outside a request cycle, such as
// timeout reminders, straight to the gateway.
func (a *Agent) deliverEffects(fx *model.OutboundEffects) {
	for _, msg := range fx.Messages {
		task := executor.PushMessage{
			To:      fx.ConversationId,
			Message: msg.Text,
			Buttons: msg.Buttons,
		}
		select {
		case a.notifyWorker.Sender() <- task:
		default:
			logger.Warn("notify queue full, dropping timeout message", zap.String("conversation", fx.ConversationId))
		}
	}
}

func (a *Agent) Start() error {
	a.notifyWorker.Start()
	a.sweeper.Start()
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			a.sweeper.Stop()
			return nil
		},
		func() error {
			a.notifyWorker.Stop()
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}

func msOrDefault(ms int, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
