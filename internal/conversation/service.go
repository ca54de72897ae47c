// Package conversation runs the chat pipeline: read memory, optionally look
// up links, assemble the prompt, call the provider, persist the exchange.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/levo/internal/completion"
	"github.com/ent0n29/levo/internal/links"
	"github.com/ent0n29/levo/internal/logging"
	"github.com/ent0n29/levo/internal/memory"
	"github.com/ent0n29/levo/internal/observability"
	"github.com/ent0n29/levo/internal/prompt"
	"github.com/ent0n29/levo/internal/reliability"
)

// ErrValidation is returned for an empty or whitespace-only prompt.
var ErrValidation = errors.New("prompt must not be empty")

// DefaultUserID is the shared bucket used by callers that send no user id.
// Every anonymous caller reads and writes the same memory.
const DefaultUserID = "guest"

// LinkResolver looks up search results; it reports failures as no results.
type LinkResolver interface {
	Resolve(ctx context.Context, query, site string, limit int) []links.Result
}

// Request is one inbound chat message.
type Request struct {
	UserID string
	Prompt string
}

// Reply is the outcome of a non-streaming turn.
type Reply struct {
	UserID string
	Text   string
	Links  []links.Result
}

// Turn is the per-request working state. It is never shared between requests.
type Turn struct {
	UserID    string
	Prompt    string
	Today     time.Time
	Memory    string
	LinkBlock string
	Links     []links.Result
	Reply     string
}

// Config controls pipeline behaviour.
type Config struct {
	Instructions  string
	DefaultUserID string
	LinkLimit     int
	Rules         links.Rules
	Now           func() time.Time
}

type Service struct {
	cfg      Config
	store    memory.Store
	resolver LinkResolver
	gateway  completion.Gateway
	metrics  *observability.Metrics
}

func NewService(cfg Config, store memory.Store, resolver LinkResolver, gateway completion.Gateway, metrics *observability.Metrics) *Service {
	if strings.TrimSpace(cfg.DefaultUserID) == "" {
		cfg.DefaultUserID = DefaultUserID
	}
	if cfg.LinkLimit <= 0 {
		cfg.LinkLimit = links.DefaultLimit
	}
	if cfg.Rules == nil {
		cfg.Rules = links.DefaultRules()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		gateway:  gateway,
		metrics:  metrics,
	}
}

// Chat runs one complete turn and returns the provider's reply. Only
// validation and provider failures are returned; memory and link problems
// degrade the context instead.
func (s *Service) Chat(ctx context.Context, req Request) (Reply, error) {
	started := time.Now()
	turn, msgs, err := s.prepare(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	t0 := time.Now()
	text, err := s.gateway.Complete(ctx, msgs)
	s.metrics.ObserveStage(observability.StageCompletion, time.Since(t0))
	if err != nil {
		s.observeProviderError(err)
		return Reply{}, fmt.Errorf("complete turn: %w", err)
	}
	turn.Reply = text

	// The reply is already owed to the caller; a dropped connection must not
	// cancel persistence.
	s.persist(context.WithoutCancel(ctx), turn)
	s.metrics.ObserveStage(observability.StageTotal, time.Since(started))

	return Reply{UserID: turn.UserID, Text: turn.Reply, Links: turn.Links}, nil
}

// Stream runs a turn in streaming mode. The returned channel carries the
// provider's deltas and ends with one Done or Err chunk. The exchange is
// persisted only when the provider finished, right before Done is
// forwarded. Cancelling ctx stops the upstream stream.
func (s *Service) Stream(ctx context.Context, req Request) (<-chan completion.Chunk, error) {
	started := time.Now()
	turn, msgs, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	streamStarted := time.Now()
	upstream, err := s.gateway.Stream(ctx, msgs)
	if err != nil {
		s.observeProviderError(err)
		return nil, fmt.Errorf("start stream: %w", err)
	}

	out := make(chan completion.Chunk)
	go func() {
		defer close(out)
		forward := func(c completion.Chunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var reply strings.Builder
		for chunk := range upstream {
			switch {
			case chunk.Err != nil:
				s.observeProviderError(chunk.Err)
				forward(chunk)
				return
			case chunk.Done:
				turn.Reply = reply.String()
				s.metrics.ObserveStage(observability.StageCompletion, time.Since(streamStarted))
				s.persist(context.WithoutCancel(ctx), turn)
				s.metrics.ObserveStage(observability.StageTotal, time.Since(started))
				forward(chunk)
				return
			default:
				reply.WriteString(chunk.Delta)
				if !forward(chunk) {
					// Drain so the producer can observe ctx and exit.
					for range upstream {
					}
					return
				}
			}
		}
	}()
	return out, nil
}

// prepare takes the turn from RECEIVED to ASSEMBLED.
func (s *Service) prepare(ctx context.Context, req Request) (*Turn, []completion.Message, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, nil, ErrValidation
	}
	logger := logging.FromCtx(ctx)

	turn := &Turn{
		UserID: strings.TrimSpace(req.UserID),
		Prompt: req.Prompt,
		Today:  s.cfg.Now(),
	}
	if turn.UserID == "" {
		turn.UserID = s.cfg.DefaultUserID
		logger.Debug().Str("user_id", turn.UserID).Msg("no user id supplied, using shared memory bucket")
	}

	t0 := time.Now()
	blob, err := s.store.ReadAll(ctx, turn.UserID)
	s.metrics.ObserveStage(observability.StageMemoryRead, time.Since(t0))
	if err != nil {
		logger.Warn().Err(err).Str("user_id", turn.UserID).Msg("memory read failed, continuing without memory")
		s.observeMemoryError("read")
		blob = ""
	}
	turn.Memory = blob

	if rule, ok := s.cfg.Rules.Match(turn.Prompt); ok && s.resolver != nil {
		t0 = time.Now()
		turn.Links = s.resolver.Resolve(ctx, turn.Prompt, rule.Site, s.cfg.LinkLimit)
		s.metrics.ObserveStage(observability.StageLinkCheck, time.Since(t0))
		turn.LinkBlock = links.Format(turn.Links)
		logger.Debug().Str("rule", rule.Name).Int("links", len(turn.Links)).Msg("link rule matched")
	}

	msgs := prompt.Assemble(prompt.Input{
		Instructions: s.cfg.Instructions,
		Today:        turn.Today,
		Memory:       turn.Memory,
		Links:        turn.LinkBlock,
		UserText:     turn.Prompt,
	})
	return turn, msgs, nil
}

// persist appends prompt then reply. Failures are logged, never returned.
func (s *Service) persist(ctx context.Context, turn *Turn) {
	t0 := time.Now()
	defer func() { s.metrics.ObserveStage(observability.StagePersist, time.Since(t0)) }()

	logger := logging.FromCtx(ctx)
	if err := s.store.Append(ctx, turn.UserID, turn.Prompt); err != nil {
		logger.Error().Err(err).Str("user_id", turn.UserID).Msg("persist prompt failed")
		s.observeMemoryError("append")
		return
	}
	if err := s.store.Append(ctx, turn.UserID, turn.Reply); err != nil {
		logger.Error().Err(err).Str("user_id", turn.UserID).Msg("persist reply failed")
		s.observeMemoryError("append")
	}
}

func (s *Service) observeProviderError(err error) {
	if s.metrics == nil {
		return
	}
	kind := reliability.KindUpstream
	var gwErr *completion.GatewayError
	if errors.As(err, &gwErr) {
		kind = gwErr.Kind
	}
	s.metrics.ProviderErrors.WithLabelValues(completion.ModeOf(s.gateway), string(kind)).Inc()
}

func (s *Service) observeMemoryError(op string) {
	if s.metrics == nil {
		return
	}
	s.metrics.MemoryErrors.WithLabelValues(op).Inc()
	if op == "read" {
		s.metrics.ObserveIndicator(observability.IndicatorMemoryDegraded)
	}
}
