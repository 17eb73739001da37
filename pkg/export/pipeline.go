package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-viewer/pkg/audit"
	"github.com/ruslano69/tdtp-viewer/pkg/processors"
	"github.com/ruslano69/tdtp-viewer/pkg/resultlog"
	"github.com/ruslano69/tdtp-viewer/pkg/retry"
)

// ErrNoSinks is returned by Deliver when the pipeline has nowhere to put artifacts.
var ErrNoSinks = errors.New("export pipeline has no sinks")

// Config controls body encoding and delivery retries.
type Config struct {
	Compress        bool         `yaml:"compress"`
	CompressMinSize int          `yaml:"compress_min_size"` // bytes; smaller bodies are stored as is
	CompressLevel   int          `yaml:"compress_level"`
	Retry           retry.Config `yaml:"retry"`
}

// DefaultConfig returns a config without compression and without retries.
func DefaultConfig() Config {
	return Config{
		CompressMinSize: 1024,
		CompressLevel:   processors.DefaultCompressionLevel,
		Retry:           retry.DefaultConfig(),
	}
}

// ResultPublisher receives one ExportResult per Deliver call.
type ResultPublisher interface {
	PublishExport(ctx context.Context, result resultlog.ExportResult) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink appends a sink. Sinks are tried in the order they are added.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, s) }
}

// WithResultPublisher publishes a result after every delivery.
func WithResultPublisher(rp ResultPublisher) Option {
	return func(p *Pipeline) { p.results = rp }
}

// WithAuditLogger records one audit entry per sink delivery.
func WithAuditLogger(l audit.Logger) Option {
	return func(p *Pipeline) { p.audit = l }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline encodes artifacts and delivers them to sinks.
type Pipeline struct {
	cfg     Config
	sinks   []Sink
	retryer *retry.Retryer
	results ResultPublisher
	audit   audit.Logger
	logger  zerolog.Logger
}

// NewPipeline validates cfg and builds the pipeline.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if cfg.CompressLevel == 0 {
		cfg.CompressLevel = processors.DefaultCompressionLevel
	}
	retryer, err := retry.NewRetryer(cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("export pipeline: %w", err)
	}

	p := &Pipeline{
		cfg:     cfg,
		retryer: retryer,
		audit:   audit.NewNullLogger(),
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "export").Logger()
	return p, nil
}

// Sinks returns the configured sink names.
func (p *Pipeline) Sinks() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}

// Deliver encodes a and puts it into every sink. It returns the joined sink
// errors; the artifact is recorded in the context receipt only when all sinks
// succeeded.
func (p *Pipeline) Deliver(ctx context.Context, a *Artifact) error {
	if len(p.sinks) == 0 {
		return ErrNoSinks
	}
	start := time.Now()

	if err := p.encode(a); err != nil {
		p.publish(ctx, a, nil, err, time.Since(start))
		return err
	}

	var (
		errs      []error
		delivered []string
	)
	for _, s := range p.sinks {
		sinkStart := time.Now()
		err := p.retryer.Do(ctx, func(ctx context.Context) error {
			return s.Put(ctx, a)
		})
		p.auditDelivery(a, s.Name(), time.Since(sinkStart), err)

		if err != nil {
			deliveriesTotal.WithLabelValues(s.Name(), "error").Inc()
			p.logger.Error().Err(err).Str("sink", s.Name()).Str("artifact", a.ID).
				Str("dataset", a.Dataset).Msg("delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		deliveriesTotal.WithLabelValues(s.Name(), "ok").Inc()
		delivered = append(delivered, s.Name())
	}
	exportBytes.WithLabelValues(a.Format).Add(float64(a.Size))

	err := errors.Join(errs...)
	elapsed := time.Since(start)
	p.publish(ctx, a, delivered, err, elapsed)
	if err != nil {
		return err
	}

	p.logger.Info().Str("artifact", a.ID).Str("dataset", a.Dataset).Str("format", a.Format).
		Int("size", a.Size).Bool("compressed", a.Compressed).Strs("sinks", delivered).
		Dur("elapsed", elapsed).Msg("artifact delivered")
	recordReceipt(ctx, a)
	return nil
}

// encode compresses the body when configured and stamps size and checksum.
func (p *Pipeline) encode(a *Artifact) error {
	if p.cfg.Compress && !a.Compressed && processors.ShouldCompress(len(a.Body), p.cfg.CompressMinSize) {
		body, err := processors.Compress(a.Body, p.cfg.CompressLevel)
		if err != nil {
			return fmt.Errorf("compress %s: %w", a.FileName, err)
		}
		a.Body = body
		a.FileName += ".zst"
		a.ContentType = ContentTypeZstd
		a.Compressed = true
	}
	a.Size = len(a.Body)
	a.Checksum = processors.ComputeChecksum(a.Body)
	return nil
}

func (p *Pipeline) publish(ctx context.Context, a *Artifact, delivered []string, err error, elapsed time.Duration) {
	if p.results == nil {
		return
	}
	result := resultlog.ExportResult{
		ArtifactID: a.ID,
		Dataset:    a.Dataset,
		Format:     a.Format,
		FileName:   a.FileName,
		Status:     "success",
		Sinks:      delivered,
		Size:       a.Size,
		Rows:       a.Rows,
		Checksum:   a.Checksum,
		FinishedAt: time.Now().UTC(),
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		result.Status = "failed"
		msg := err.Error()
		result.Error = &msg
	}
	if perr := p.results.PublishExport(ctx, result); perr != nil {
		p.logger.Warn().Err(perr).Str("artifact", a.ID).Msg("result publish failed")
	}
}

func (p *Pipeline) auditDelivery(a *Artifact, sink string, elapsed time.Duration, err error) {
	entry := audit.NewEntry(audit.OpExport, audit.StatusSuccess).
		WithResource(a.Dataset).
		WithTarget(sink).
		WithRecordsAffected(int64(a.Rows)).
		WithDuration(elapsed).
		WithMetadata("artifact_id", a.ID).
		WithMetadata("format", a.Format).
		WithMetadata("size", a.Size)
	if err != nil {
		entry.Status = audit.StatusFailure
		entry.WithError(err)
	}
	if lerr := p.audit.Log(context.Background(), entry); lerr != nil {
		p.logger.Warn().Err(lerr).Msg("audit write failed")
	}
}
