package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tdtp-viewer/pkg/audit"
	"github.com/ruslano69/tdtp-viewer/pkg/processors"
	"github.com/ruslano69/tdtp-viewer/pkg/resultlog"
	"github.com/ruslano69/tdtp-viewer/pkg/retry"
)

type flakySink struct {
	mu       sync.Mutex
	name     string
	failures int // calls that fail before the first success
	calls    int
	got      []*Artifact
}

func (s *flakySink) Name() string { return s.name }

func (s *flakySink) Put(_ context.Context, a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("connection reset")
	}
	s.got = append(s.got, a)
	return nil
}

func csvArtifact(body string) *Artifact {
	a := NewArtifact("widgets", FormatCSV, []byte(body))
	a.Rows = 2
	a.Columns = []string{"id", "name"}
	return a
}

func TestDeliverStampsChecksumAndReceipt(t *testing.T) {
	mem := NewMemorySink(4)
	p, err := NewPipeline(DefaultConfig(), WithSink(mem))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	ctx, rcpt := WithReceipt(context.Background())
	a := csvArtifact("id,name\n1,a\n2,b\n")
	if err := p.Deliver(ctx, a); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if a.Checksum != processors.ComputeChecksum(a.Body) {
		t.Errorf("checksum %q does not match body", a.Checksum)
	}
	if a.Compressed {
		t.Error("compression is off by default")
	}
	if a.Size != len(a.Body) {
		t.Errorf("Size = %d, want %d", a.Size, len(a.Body))
	}
	if got := rcpt.Artifact(); got != a {
		t.Errorf("receipt artifact = %v, want delivered artifact", got)
	}
	if stored, err := mem.Get(a.ID); err != nil || stored != a {
		t.Errorf("memory sink Get = %v, %v", stored, err)
	}
}

func TestDeliverCompresses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compress = true
	cfg.CompressMinSize = 16

	mem := NewMemorySink(1)
	p, err := NewPipeline(cfg, WithSink(mem))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	plain := strings.Repeat("id,name\n1,widget\n", 100)
	a := csvArtifact(plain)
	if err := p.Deliver(context.Background(), a); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if !a.Compressed || !strings.HasSuffix(a.FileName, ".csv.zst") || a.ContentType != ContentTypeZstd {
		t.Fatalf("artifact not marked compressed: %+v", a)
	}
	if err := processors.ValidateChecksum(a.Body, a.Checksum); err != nil {
		t.Errorf("checksum covers stored body: %v", err)
	}
	out, err := processors.Decompress(a.Body)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != plain {
		t.Error("decompressed body differs")
	}

	small := csvArtifact("id\n")
	if err := p.Deliver(context.Background(), small); err != nil {
		t.Fatalf("Deliver small: %v", err)
	}
	if small.Compressed {
		t.Error("bodies below the threshold are stored as is")
	}
}

func TestDeliverRetries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry = retry.EnableRetry(3, time.Millisecond)
	cfg.Retry.Jitter = 0

	sink := &flakySink{name: "flaky", failures: 2}
	p, err := NewPipeline(cfg, WithSink(sink))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if err := p.Deliver(context.Background(), csvArtifact("x")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if sink.calls != 3 || len(sink.got) != 1 {
		t.Errorf("calls = %d, delivered = %d", sink.calls, len(sink.got))
	}
}

func TestDeliverPartialFailure(t *testing.T) {
	mem := NewMemorySink(2)
	broken := &flakySink{name: "broken", failures: 100}
	auditMem := audit.NewMemoryAppender()
	auditLog := audit.NewLogger(audit.SyncConfig(), auditMem)

	p, err := NewPipeline(DefaultConfig(), WithSink(broken), WithSink(mem), WithAuditLogger(auditLog))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	ctx, rcpt := WithReceipt(context.Background())
	a := csvArtifact("id\n1\n")
	err = p.Deliver(ctx, a)
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("Deliver error = %v, want broken sink error", err)
	}
	if rcpt.Artifact() != nil {
		t.Error("receipt must stay empty on failure")
	}
	if _, err := mem.Get(a.ID); err != nil {
		t.Errorf("remaining sinks still receive the artifact: %v", err)
	}

	entries := auditMem.Entries()
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	if entries[0].Status != audit.StatusFailure || entries[0].Target != "broken" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Status != audit.StatusSuccess || entries[1].Target != "memory" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestDeliverNoSinks(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if err := p.Deliver(context.Background(), csvArtifact("x")); !errors.Is(err, ErrNoSinks) {
		t.Errorf("err = %v, want ErrNoSinks", err)
	}
}

func TestDeliverPublishesResult(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	pub := resultlog.NewRedisPublisherWithClient(client, resultlog.Config{Prefix: "t"})

	p, err := NewPipeline(DefaultConfig(), WithSink(NewMemorySink(1)), WithResultPublisher(pub))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	a := csvArtifact("id\n1\n")
	if err := p.Deliver(context.Background(), a); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	raw, err := mr.Get(pub.ExportKey("widgets"))
	if err != nil {
		t.Fatalf("result key: %v", err)
	}
	var res resultlog.ExportResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.ArtifactID != a.ID || res.Status != "success" || res.Rows != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Sinks) != 1 || res.Sinks[0] != "memory" {
		t.Errorf("sinks = %v", res.Sinks)
	}
}

func TestInvalidRetryConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry = retry.EnableRetry(3, time.Second)
	cfg.Retry.Jitter = 2
	if _, err := NewPipeline(cfg); err == nil {
		t.Error("expected error for jitter > 1")
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	tests := []struct {
		dataset, format, want string
	}{
		{"widgets", FormatCSV, "widgets_20240305_140709.csv"},
		{"dbo.Orders", FormatXLSX, "dbo.Orders_20240305_140709.xlsx"},
		{"a b/c", FormatCSV, "a_b_c_20240305_140709.csv"},
		{"", FormatCSV, "export_20240305_140709.csv"},
	}
	for _, tt := range tests {
		if got := FileName(tt.dataset, tt.format, at); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.dataset, got, tt.want)
		}
	}
}

func TestReceiptWithoutContext(t *testing.T) {
	// recordReceipt on a plain context is a no-op
	recordReceipt(context.Background(), csvArtifact("x"))

	_, rcpt := WithReceipt(context.Background())
	if rcpt.Artifact() != nil {
		t.Error("fresh receipt must be empty")
	}
}

func TestEnvelopeBody(t *testing.T) {
	a := csvArtifact("id\n1\n")
	raw, err := json.Marshal(NewEnvelope(a))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(env.Body, a.Body) || env.ID != a.ID {
		t.Errorf("envelope = %+v", env)
	}
}
