package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ent0n29/levo/internal/protocol"
)

type benchOptions struct {
	baseURL        string
	userID         string
	turns          int
	prompts        []string
	turnTimeout    time.Duration
	interTurnDelay time.Duration
	verbose        bool
}

var benchOpts benchOptions

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Replay chat turns over the websocket and report latency",
	Long:  `Connects to a running server's /ws endpoint, sends the given prompts in sequence and reports time to first delta and to turn end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := runBench(cmd.Context(), cmd.ErrOrStderr(), benchOpts)
		if err != nil {
			return err
		}
		return report.write(cmd.OutOrStdout())
	},
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&benchOpts.baseURL, "base-url", "http://127.0.0.1:8080", "levo server base URL")
	f.StringVar(&benchOpts.userID, "user", "bench", "user id sent with every turn")
	f.IntVar(&benchOpts.turns, "turns", 5, "number of turns")
	f.StringSliceVar(&benchOpts.prompts, "prompt", []string{"hey, how are you?", "tell me a fun fact", "recommend a video about space"}, "prompts, cycled across turns")
	f.DurationVar(&benchOpts.turnTimeout, "turn-timeout", 45*time.Second, "maximum wait for one turn")
	f.DurationVar(&benchOpts.interTurnDelay, "inter-turn-delay", 0, "pause between turns")
	f.BoolVarP(&benchOpts.verbose, "verbose", "v", false, "log every turn")
	rootCmd.AddCommand(benchCmd)
}

type turnTiming struct {
	FirstDelta time.Duration
	Total      time.Duration
	Chars      int
}

type benchReport struct {
	Turns []turnTiming
}

func runBench(ctx context.Context, log io.Writer, opts benchOptions) (benchReport, error) {
	if opts.turns <= 0 {
		return benchReport{}, fmt.Errorf("--turns must be positive")
	}
	if len(opts.prompts) == 0 {
		return benchReport{}, fmt.Errorf("at least one --prompt is required")
	}
	if opts.turnTimeout <= 0 {
		opts.turnTimeout = 45 * time.Second
	}

	wsURL, err := wsURLFor(opts.baseURL)
	if err != nil {
		return benchReport{}, fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return benchReport{}, fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	var report benchReport
	for i := 0; i < opts.turns; i++ {
		prompt := opts.prompts[i%len(opts.prompts)]
		timing, err := runTurn(conn, opts.userID, prompt, opts.turnTimeout)
		if err != nil {
			return report, fmt.Errorf("turn %d: %w", i+1, err)
		}
		report.Turns = append(report.Turns, timing)
		if opts.verbose {
			fmt.Fprintf(log, "bench: turn %d/%d first_delta=%s total=%s chars=%d\n", i+1, opts.turns, timing.FirstDelta, timing.Total, timing.Chars)
		}
		if opts.interTurnDelay > 0 && i < opts.turns-1 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(opts.interTurnDelay):
			}
		}
	}
	return report, nil
}

type wsFrame struct {
	Type      string `json:"type"`
	TextDelta string `json:"text_delta"`
	Code      string `json:"code"`
	Detail    string `json:"detail"`
}

func runTurn(conn *websocket.Conn, userID, prompt string, timeout time.Duration) (turnTiming, error) {
	started := time.Now()
	_ = conn.SetWriteDeadline(started.Add(10 * time.Second))
	if err := conn.WriteJSON(protocol.ChatRequest{Type: protocol.TypeChatRequest, Prompt: prompt, UserID: userID}); err != nil {
		return turnTiming{}, fmt.Errorf("send chat_request: %w", err)
	}
	_ = conn.SetReadDeadline(started.Add(timeout))

	var t turnTiming
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return t, fmt.Errorf("await assistant_turn_end: %w", err)
		}
		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch protocol.MessageType(frame.Type) {
		case protocol.TypeAssistantTextDelta:
			if t.FirstDelta == 0 {
				t.FirstDelta = time.Since(started)
			}
			t.Chars += len(frame.TextDelta)
		case protocol.TypeErrorEvent:
			return t, fmt.Errorf("error_event code=%s detail=%s", frame.Code, frame.Detail)
		case protocol.TypeAssistantTurnEnd:
			t.Total = time.Since(started)
			return t, nil
		}
	}
}

func wsURLFor(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

func (r benchReport) write(w io.Writer) error {
	first := make([]time.Duration, 0, len(r.Turns))
	total := make([]time.Duration, 0, len(r.Turns))
	for _, t := range r.Turns {
		first = append(first, t.FirstDelta)
		total = append(total, t.Total)
	}
	_, err := fmt.Fprintf(w, "turns=%d first_delta_p50=%s first_delta_p95=%s total_p50=%s total_p95=%s\n",
		len(r.Turns), percentile(first, 0.50), percentile(first, 0.95), percentile(total, 0.50), percentile(total, 0.95))
	return err
}

// percentile uses nearest-rank on a sorted copy.
func percentile(values []time.Duration, q float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(q*float64(len(sorted))+0.999999) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
