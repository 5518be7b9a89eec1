// Package metricskey describes the metrics emitted by chat runs,
// model calls, tool calls and the chat store.
package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsChatTurns is base for counter metric for model turns in a chat run
	StatsChatTurns = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_turns",
		Help:         "stats_chat_turns provides total model turns in chat runs",
		RequiredTags: []string{"model"},
	}

	StatsLLMCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_failed",
		Help:         "stats_llm_calls_failed provides total model calls degraded to an error text",
		RequiredTags: []string{"model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"model"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool", "provider"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool", "provider"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsStoreCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_store_calls_failed",
		Help:         "stats_store_calls_failed provides total chat store operations failed",
		RequiredTags: []string{"op"},
	}

	StatsToolListFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_list_failed",
		Help:         "stats_tool_list_failed provides total tool listings failed",
		RequiredTags: []string{"provider"},
	}
)

// Perf
var (
	PerfChatRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chat_run",
		Help:         "perf_chat_run provides duration of chat run",
		RequiredTags: []string{"model"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of model call",
		RequiredTags: []string{"model"},
	}

	PerfStoreCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_store_call",
		Help:         "perf_store_call provides duration of chat store operation",
		RequiredTags: []string{"op"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool", "provider"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfChatRun,
	&PerfLLMCall,
	&PerfStoreCall,
	&PerfToolCall,
	&StatsChatTurns,
	&StatsLLMCallsFailed,
	&StatsLLMInputTokens,
	&StatsLLMOutputTokens,
	&StatsStoreCallsFailed,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
	&StatsToolListFailed,
}
