package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/levo/internal/completion"
	"github.com/ent0n29/levo/internal/conversation"
	"github.com/ent0n29/levo/internal/logging"
	"github.com/ent0n29/levo/internal/protocol"
	"github.com/ent0n29/levo/internal/reliability"
)

type chatRequest struct {
	Prompt string `json:"prompt" validate:"notblank,max=16000"`
	UserID string `json:"user_id" validate:"omitempty,max=128"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		s.unavailable(w, "chat")
		return
	}
	var req chatRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	reply, err := s.deps.Chat.Chat(r.Context(), conversation.Request{UserID: req.UserID, Prompt: req.Prompt})
	if err != nil {
		status, code, _ := s.describeError(r.Context(), err)
		respondError(w, status, code, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Response: reply.Text})
}

// handleStream answers with Server-Sent Events: one data event per delta,
// then "data: [DONE]". A provider failure after the first byte becomes an
// "error" event since the status line is already out.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		s.unavailable(w, "chat")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot flush")
		return
	}
	req := chatRequest{
		Prompt: r.URL.Query().Get("prompt"),
		UserID: r.URL.Query().Get("user_id"),
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	chunks, err := s.deps.Chat.Stream(r.Context(), conversation.Request{UserID: req.UserID, Prompt: req.Prompt})
	if err != nil {
		status, code, _ := s.describeError(r.Context(), err)
		respondError(w, status, code, err.Error())
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.metrics.ActiveStreams.Inc()
	defer s.metrics.ActiveStreams.Dec()

	for chunk := range chunks {
		switch {
		case chunk.Err != nil:
			_, code, _ := s.describeError(r.Context(), chunk.Err)
			payload, _ := json.Marshal(errorResponse{Error: chunk.Err.Error(), Code: code})
			writeSSE(w, "error", string(payload))
			flusher.Flush()
			return
		case chunk.Done:
			writeSSE(w, "", "[DONE]")
			flusher.Flush()
			return
		default:
			writeSSE(w, "", chunk.Delta)
			flusher.Flush()
			s.metrics.StreamChunks.Inc()
		}
	}
}

// writeSSE emits one event. Multi-line data is split over several data
// fields so the client reassembles it with newlines.
func writeSSE(w http.ResponseWriter, event, data string) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

// handleChatWS runs chat turns over a websocket. Turns on one connection are
// served in order; every server frame of a turn carries the same turn id.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		s.unavailable(w, "chat")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan protocol.ChatRequest, 16)
	outbound := make(chan any, 256)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		defer close(outbound)
		for req := range inbound {
			s.runWSTurn(ctx, req, outbound)
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				cancel()
				_ = conn.Close()
				// Keep draining so the turn runner never blocks.
				for range outbound {
				}
				return
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			select {
			case outbound <- protocol.NewErrorEvent("", "invalid_client_message", err.Error(), false):
			default:
				// Drop rather than block the reader when the writer is saturated.
			}
			continue
		}
		req, ok := parsed.(protocol.ChatRequest)
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- req:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
}

func (s *Server) runWSTurn(ctx context.Context, req protocol.ChatRequest, outbound chan<- any) {
	turnID := protocol.NewTurnID()
	send := func(msg any) bool {
		select {
		case outbound <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		_, code, retryable := s.describeError(ctx, err)
		if send(protocol.NewErrorEvent(turnID, code, err.Error(), retryable)) {
			send(protocol.NewTurnEnd(turnID, protocol.ReasonFailed))
		}
	}

	chunks, err := s.deps.Chat.Stream(ctx, conversation.Request{UserID: req.UserID, Prompt: req.Prompt})
	if err != nil {
		fail(err)
		return
	}
	s.metrics.ActiveStreams.Inc()
	defer s.metrics.ActiveStreams.Dec()

	for chunk := range chunks {
		switch {
		case chunk.Err != nil:
			fail(chunk.Err)
			return
		case chunk.Done:
			send(protocol.NewTurnEnd(turnID, protocol.ReasonCompleted))
			return
		default:
			if !send(protocol.NewTextDelta(turnID, chunk.Delta)) {
				return
			}
			s.metrics.StreamChunks.Inc()
		}
	}
}

// describeError maps a pipeline error to an HTTP status, a stable error code
// and whether retrying could help. Provider failures are logged here.
func (s *Server) describeError(ctx context.Context, err error) (int, string, bool) {
	if errors.Is(err, conversation.ErrValidation) {
		return http.StatusBadRequest, "empty_prompt", false
	}

	var gwErr *completion.GatewayError
	if errors.As(err, &gwErr) {
		logger := logging.FromCtx(ctx)
		if reliability.IsClientFault(gwErr.Kind) {
			logger.Error().Err(err).Str("kind", string(gwErr.Kind)).Int("status", gwErr.Status).Msg("provider rejected our credentials or quota")
		} else {
			logger.Warn().Err(err).Str("kind", string(gwErr.Kind)).Int("status", gwErr.Status).Msg("provider call failed")
		}
		code := "provider_" + string(gwErr.Kind)
		switch gwErr.Kind {
		case reliability.KindTimeout:
			return http.StatusGatewayTimeout, code, true
		case reliability.KindUpstream:
			return http.StatusBadGateway, code, true
		default:
			return http.StatusBadGateway, code, false
		}
	}

	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "cancelled", true
	}
	logging.FromCtx(ctx).Error().Err(err).Msg("unexpected pipeline error")
	return http.StatusInternalServerError, "internal", false
}
