package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/audit"
	"github.com/ruslano69/tdtp-viewer/pkg/brokers"
	"github.com/ruslano69/tdtp-viewer/pkg/export"
	"github.com/ruslano69/tdtp-viewer/pkg/grid"
	"github.com/ruslano69/tdtp-viewer/pkg/processors"
	"github.com/ruslano69/tdtp-viewer/pkg/resilience"
	"github.com/ruslano69/tdtp-viewer/pkg/resultlog"
	"github.com/ruslano69/tdtp-viewer/pkg/source"
	"github.com/ruslano69/tdtp-viewer/pkg/viewer"
)

// statePublishTimeout bounds one result-log write of a viewer state.
const statePublishTimeout = 5 * time.Second

// app owns every long-lived component of a tdtpview process.
type app struct {
	cfg *Config

	adapter    adapters.Adapter
	cache      *source.CachedSource // nil when the cache is disabled
	cacheRedis *redis.Client
	audit      audit.Logger
	results    *resultlog.RedisPublisher // nil when the result log is disabled
	broker     brokers.MessageBroker     // export broker sink, optional
	downloads  *export.MemorySink
	pipeline   *export.Pipeline
	grid       *grid.Grid
	controller *viewer.Controller

	states      chan viewer.State
	unsubscribe func()
	published   chan struct{}

	closeOnce sync.Once
}

// newApp connects the source and builds the component graph. On error every
// component created so far is released.
func newApp(ctx context.Context, cfg *Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	connectStart := time.Now()
	a.adapter, err = adapters.New(ctx, cfg.Source.Config)
	if err != nil {
		return nil, err
	}
	connected := time.Since(connectStart)

	src := source.FromAdapter(a.adapter)
	if cfg.Breaker.Enabled {
		bcfg := cfg.Breaker
		bcfg.OnStateChange = func(name string, from, to resilience.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("source circuit breaker state changed")
		}
		cb, err := resilience.New(bcfg)
		if err != nil {
			return nil, fmt.Errorf("breaker: %w", err)
		}
		src = source.WithBreaker(src, cb)
	}
	if cfg.Cache.Enabled {
		a.cacheRedis = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		a.cache = source.Cached(src, a.cacheRedis, source.CacheOptions{
			Prefix: cfg.Cache.Prefix,
			TTL:    cfg.Cache.TTL,
			Level:  cfg.Cache.Level,
		})
		src = a.cache
	}

	if a.audit, err = newAuditLogger(cfg.Audit, a.adapter.GetDatabaseType()); err != nil {
		return nil, err
	}
	a.logAudit(ctx, audit.NewEntry(audit.OpConnect, audit.StatusSuccess).WithDuration(connected))

	if cfg.ResultLog.Enabled {
		a.results = resultlog.NewRedisPublisher(cfg.ResultLog)
	}

	if a.pipeline, err = a.newPipeline(ctx); err != nil {
		return nil, err
	}

	var chain *processors.Chain
	if len(cfg.Export.Mask) > 0 {
		masker, err := processors.NewFieldMaskerFromConfig(cfg.Export.Mask)
		if err != nil {
			return nil, fmt.Errorf("export mask: %w", err)
		}
		chain = processors.NewChain(masker)
	}
	a.grid = grid.New(a.pipeline, grid.WithRowProcessors(chain), grid.WithLogger(log.Logger))

	a.controller = viewer.New(src,
		viewer.WithRenderer(a.grid),
		viewer.WithFetchTimeout(cfg.Source.Timeout),
		viewer.WithAuditLogger(a.audit),
		viewer.WithLogger(log.Logger),
		viewer.WithSourceType(a.adapter.GetDatabaseType()),
	)

	if a.results != nil {
		a.states = make(chan viewer.State, 64)
		a.published = make(chan struct{})
		a.unsubscribe = a.controller.Subscribe(a.enqueueState)
		go a.publishStates()
	}
	return a, nil
}

func newAuditLogger(cfg AuditConfig, sourceType string) (audit.Logger, error) {
	if !cfg.Enabled {
		return audit.NewNullLogger(), nil
	}
	level, err := audit.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	appenders := []audit.Appender{audit.NewLogAppender(log.Logger, level)}
	if cfg.File != "" {
		fa, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			Level:      level,
			FormatJSON: true,
		})
		if err != nil {
			return nil, fmt.Errorf("audit file: %w", err)
		}
		appenders = append(appenders, fa)
	}

	lcfg := audit.SyncConfig()
	if cfg.Async {
		lcfg = audit.DefaultConfig()
	}
	lcfg.DefaultSource = sourceType
	lcfg.OnError = func(err error) {
		log.Warn().Err(err).Msg("audit append failed")
	}
	return audit.NewLogger(lcfg, audit.NewMultiAppender(appenders...)), nil
}

func (a *app) newPipeline(ctx context.Context) (*export.Pipeline, error) {
	cfg := a.cfg.Export

	a.downloads = export.NewMemorySink(cfg.Keep)
	opts := []export.Option{
		export.WithSink(a.downloads),
		export.WithAuditLogger(a.audit),
		export.WithLogger(log.Logger),
	}

	if cfg.Dir != "" {
		fs, err := export.NewFileSink(cfg.Dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, export.WithSink(fs))
	}
	if cfg.S3 != nil {
		s3s, err := export.NewS3Sink(ctx, *cfg.S3)
		if err != nil {
			return nil, err
		}
		opts = append(opts, export.WithSink(s3s))
	}
	if cfg.Broker != nil {
		b, err := brokers.New(*cfg.Broker)
		if err != nil {
			return nil, fmt.Errorf("export broker: %w", err)
		}
		if err := b.Connect(ctx); err != nil {
			return nil, fmt.Errorf("export broker: %w", err)
		}
		a.broker = b
		opts = append(opts, export.WithSink(export.NewBrokerSink(b)))
	}
	if a.results != nil {
		opts = append(opts, export.WithResultPublisher(a.results))
	}
	return export.NewPipeline(cfg.Config, opts...)
}

// enqueueState runs on the controller's publishing goroutine and must not block.
func (a *app) enqueueState(st viewer.State) {
	select {
	case a.states <- st:
	default:
		log.Warn().Str("dataset", st.Dataset).Str("status", st.Status.String()).
			Msg("state publish queue full, state dropped")
	}
}

func (a *app) publishStates() {
	defer close(a.published)
	for st := range a.states {
		ctx, cancel := context.WithTimeout(context.Background(), statePublishTimeout)
		if err := a.results.PublishState(ctx, toViewerState(st)); err != nil {
			log.Warn().Err(err).Str("dataset", st.Dataset).Msg("state publish failed")
		}
		cancel()
	}
}

func toViewerState(st viewer.State) resultlog.ViewerState {
	cols := st.Schema.Fields()
	if cols == nil {
		cols = []string{}
	}
	return resultlog.ViewerState{
		Dataset:    st.Dataset,
		Status:     st.Status.String(),
		Generation: st.Generation,
		RowCount:   len(st.Rows),
		Columns:    cols,
		Message:    st.Message,
		At:         time.Now().UTC(),
	}
}

// SetDataset switches the viewer to name.
func (a *app) SetDataset(name string) {
	a.controller.SetDataset(name)
}

// Reload drops the cached copy of the current dataset and fetches it again.
func (a *app) Reload(ctx context.Context) error {
	name := a.controller.State().Dataset
	if name == "" {
		return errNoDataset
	}
	if a.cache != nil {
		if err := a.cache.Invalidate(ctx, name); err != nil {
			log.Warn().Err(err).Str("dataset", name).Msg("cache invalidate failed")
		}
	}
	a.controller.Reload()
	return nil
}

// Export runs an export of the current view. A nil artifact with a nil error
// means nothing was mounted.
func (a *app) Export(ctx context.Context, f viewer.Format) (*export.Artifact, error) {
	ctx, rcpt := export.WithReceipt(ctx)
	if err := a.controller.ExportAs(ctx, f); err != nil {
		return nil, err
	}
	return rcpt.Artifact(), nil
}

var errNoDataset = errors.New("no dataset selected")

// Close stops the controller and releases every connection. Safe on a
// partially built app and on repeated calls.
func (a *app) Close() {
	a.closeOnce.Do(a.close)
}

func (a *app) close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.controller != nil {
		_ = a.controller.Close()
	}
	if a.states != nil {
		close(a.states)
		<-a.published
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			log.Warn().Err(err).Msg("audit close")
		}
	}
	if a.results != nil {
		_ = a.results.Close()
	}
	if a.broker != nil {
		_ = a.broker.Close()
	}
	if a.cacheRedis != nil {
		_ = a.cacheRedis.Close()
	}
	if a.adapter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.adapter.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("source close")
		}
	}
}

// Datasets lists the source's datasets in name order.
func (a *app) Datasets(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := a.adapter.GetTableNames(ctx)
	entry := audit.NewEntry(audit.OpList, audit.StatusSuccess).WithDuration(time.Since(start))
	if err != nil {
		a.logAudit(ctx, entry.WithError(err))
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	slices.Sort(names)
	a.logAudit(ctx, entry.WithRecordsAffected(int64(len(names))))
	return names, nil
}

func (a *app) logAudit(ctx context.Context, entry *audit.Entry) {
	if err := a.audit.Log(ctx, entry); err != nil {
		log.Warn().Err(err).Str("operation", string(entry.Operation)).Msg("audit write failed")
	}
}
