package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-viewer/pkg/brokers"
	"github.com/ruslano69/tdtp-viewer/pkg/export"
	"github.com/ruslano69/tdtp-viewer/pkg/viewer"
)

// Command is a viewer instruction received from the message broker:
//
//	{"action":"set_dataset","name":"orders"}
//	{"action":"reload"}
//	{"action":"export","format":"csv"}
type Command struct {
	Action string `json:"action"`
	Name   string `json:"name,omitempty"`
	Format string `json:"format,omitempty"`
}

const (
	ActionSetDataset = "set_dataset"
	ActionReload     = "reload"
	ActionExport     = "export"
)

// commandTarget is what broker commands drive. *app implements it.
type commandTarget interface {
	SetDataset(name string)
	Reload(ctx context.Context) error
	Export(ctx context.Context, f viewer.Format) (*export.Artifact, error)
}

var (
	pollInterval = 500 * time.Millisecond
	maxBackoff   = 30 * time.Second
)

// commandListener consumes commands from a broker until its context ends.
type commandListener struct {
	broker brokers.MessageBroker
	target commandTarget
	logger zerolog.Logger
}

func newCommandListener(b brokers.MessageBroker, target commandTarget) *commandListener {
	return &commandListener{
		broker: b,
		target: target,
		logger: log.Logger.With().Str("component", "commands").Str("broker", b.GetBrokerType()).Logger(),
	}
}

// Run receives, applies and acks commands. Invalid commands are logged and
// acked so they are not redelivered. Receive errors back off exponentially.
func (l *commandListener) Run(ctx context.Context) {
	l.logger.Info().Msg("command listener started")
	defer l.logger.Info().Msg("command listener stopped")

	backoff := pollInterval
	for {
		msg, err := l.broker.Receive(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, brokers.ErrNoMessage):
			backoff = pollInterval
			if !sleep(ctx, pollInterval) {
				return
			}
			continue
		case err != nil:
			l.logger.Warn().Err(err).Dur("backoff", backoff).Msg("receive failed")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = pollInterval

		if err := l.handle(ctx, msg); err != nil {
			l.logger.Error().Err(err).Msg("command failed")
		}
		if err := l.broker.Ack(ctx); err != nil {
			l.logger.Warn().Err(err).Msg("ack failed")
		}
	}
}

func (l *commandListener) handle(ctx context.Context, msg []byte) error {
	var cmd Command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}

	l.logger.Debug().Str("action", cmd.Action).Str("name", cmd.Name).Str("format", cmd.Format).Msg("command received")

	switch cmd.Action {
	case ActionSetDataset:
		if cmd.Name == "" {
			return fmt.Errorf("%s: name is required", cmd.Action)
		}
		l.target.SetDataset(cmd.Name)
		return nil
	case ActionReload:
		return l.target.Reload(ctx)
	case ActionExport:
		f, err := viewer.ParseFormat(cmd.Format)
		if err != nil {
			return err
		}
		a, err := l.target.Export(ctx, f)
		if err != nil {
			return err
		}
		if a == nil {
			l.logger.Info().Str("format", string(f)).Msg("export skipped, nothing displayed")
			return nil
		}
		l.logger.Info().Str("artifact", a.ID).Str("file", a.FileName).Msg("export delivered")
		return nil
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
}

// sleep waits d or until ctx ends; it reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
