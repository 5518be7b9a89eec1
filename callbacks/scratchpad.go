package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/mcpchat/chat"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llmutils"
)

var TimeNowFn = time.Now

// RunStats are the counters of a single chat run.
type RunStats struct {
	ChatID string

	Duration            time.Duration
	ModelTurns          uint32
	ToolCallsRequested  uint32
	LLMBytesIn          uint64
	LLMInputTokens      uint64
	LLMOutputTokens     uint64
	LLMTotalTokens      uint64
	InterimTexts        uint32
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
	ToolNotFound        uint32
	Failed              bool
}

// Scratchpad is a callback handler that records a transcript
// and the stats of each chat run.
// A run starts on OnChatStart and is collected with EndRun.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// EndRun returns the stats and the transcript of the run,
// and forgets it. It returns nil if the run is unknown.
func (l *Scratchpad) EndRun(chatID string) (*RunStats, []byte) {
	l.lock.Lock()
	run := l.runs[chatID]
	delete(l.runs, chatID)
	l.lock.Unlock()

	if run == nil {
		return nil, nil
	}

	stats := run.snapshot()
	if stats.Duration == 0 {
		stats.Duration = TimeNowFn().Sub(run.started)
	}

	run.print(fmt.Sprintf("Model turns: %d, Tool calls requested: %d, Interim texts: %d",
		stats.ModelTurns,
		stats.ToolCallsRequested,
		stats.InterimTexts,
	))
	run.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		stats.ToolsCalls,
		stats.ToolsCallsFailed,
		stats.ToolNotFound,
	))
	run.print(fmt.Sprintf("Bytes In: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))
	run.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	return &stats, run.bytes()
}

func (l *Scratchpad) getRun(chatID string) *run {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatID]
}

func (l *Scratchpad) OnChatStart(ctx context.Context, chatID, query string) {
	r := &run{
		chatID:  chatID,
		started: TimeNowFn(),
	}
	r.stats.ChatID = chatID

	l.lock.Lock()
	l.runs[chatID] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
	r.print("Input:", query)
}

func (l *Scratchpad) OnModelResponse(ctx context.Context, chatID string, turn int, resp *llms.ContentResponse) {
	run := l.getRun(chatID)
	if run == nil || resp == nil {
		return
	}

	atomic.AddUint32(&run.stats.ModelTurns, 1)
	atomic.AddUint32(&run.stats.ToolCallsRequested, uint32(len(resp.ToolCalls)))
	atomic.AddUint64(&run.stats.LLMBytesIn, llmutils.CountResponseContentSize(resp))

	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	atomic.AddUint64(&run.stats.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&run.stats.LLMOutputTokens, uint64(tokensOut))
	atomic.AddUint64(&run.stats.LLMTotalTokens, uint64(tokensTotal))

	run.print("*** Model Turn ***", fmt.Sprintf("%d: %d tool calls, %d input tokens, %d output tokens",
		turn, len(resp.ToolCalls), tokensIn, tokensOut))
	if l.mode == ModeVerbose {
		run.print(printMessage(resp.Message))
	}
}

func (l *Scratchpad) OnInterimText(ctx context.Context, chatID, text string) {
	run := l.getRun(chatID)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.InterimTexts, 1)
	run.print("Interim:", text)
}

func (l *Scratchpad) OnChatEnd(ctx context.Context, chatID, answer string, err error) {
	run := l.getRun(chatID)
	if run == nil {
		return
	}
	run.finish(err != nil)

	if err != nil {
		run.print("*** Error ***", err.Error())
		return
	}
	if l.mode == ModeVerbose {
		run.print("Output:", answer)
	}
	run.print("*** Chat End ***")
}

func (l *Scratchpad) OnToolStart(ctx context.Context, provider string, call llms.ToolCall) {
	run := l.getRun(chat.IDFromContext(ctx))
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCalls, 1)
	run.print(provider, call.Name(), "*** Tool Start ***")
	if l.mode == ModeVerbose {
		run.print(provider, call.Name(), "Input:", call.String())
	}
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, provider string, call llms.ToolCall, resp llms.ToolCallResponse) {
	run := l.getRun(chat.IDFromContext(ctx))
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		run.print(provider, call.Name(), "Output:", resp.Content())
	}
	run.print(provider, call.Name(), "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, provider string, call llms.ToolCall, err error) {
	run := l.getRun(chat.IDFromContext(ctx))
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsFailed, 1)
	run.print(provider, call.Name(), "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, call llms.ToolCall) {
	run := l.getRun(chat.IDFromContext(ctx))
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolNotFound, 1)
	run.print("*** Tool Not Found ***", call.Name())
}

func printMessage(msg llms.Message) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s:", msg.Role)
	texts := 0
	calls := 0
	for _, part := range msg.Parts {
		switch typ := part.(type) {
		case llms.TextContent:
			texts++
		case llms.ToolCall:
			calls++
			buf.WriteString("\n  - ")
			buf.WriteString(typ.String())
		}
	}
	fmt.Fprintf(&buf, "\n  - %d texts, %d tool calls", texts, calls)
	return buf.String()
}

type run struct {
	chatID  string
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

func (r *run) finish(failed bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.stats.Duration = TimeNowFn().Sub(r.started)
	r.stats.Failed = failed
}

func (r *run) snapshot() RunStats {
	r.lock.Lock()
	defer r.lock.Unlock()
	return RunStats{
		ChatID:              r.stats.ChatID,
		Duration:            r.stats.Duration,
		ModelTurns:          atomic.LoadUint32(&r.stats.ModelTurns),
		ToolCallsRequested:  atomic.LoadUint32(&r.stats.ToolCallsRequested),
		LLMBytesIn:          atomic.LoadUint64(&r.stats.LLMBytesIn),
		LLMInputTokens:      atomic.LoadUint64(&r.stats.LLMInputTokens),
		LLMOutputTokens:     atomic.LoadUint64(&r.stats.LLMOutputTokens),
		LLMTotalTokens:      atomic.LoadUint64(&r.stats.LLMTotalTokens),
		InterimTexts:        atomic.LoadUint32(&r.stats.InterimTexts),
		ToolsCalls:          atomic.LoadUint32(&r.stats.ToolsCalls),
		ToolsCallsSucceeded: atomic.LoadUint32(&r.stats.ToolsCallsSucceeded),
		ToolsCallsFailed:    atomic.LoadUint32(&r.stats.ToolsCallsFailed),
		ToolNotFound:        atomic.LoadUint32(&r.stats.ToolNotFound),
		Failed:              r.stats.Failed,
	}
}

func (r *run) bytes() []byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	return bytes.Clone(r.w.Bytes())
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp chatID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := TimeNowFn()
	ts := now.Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatID)
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
