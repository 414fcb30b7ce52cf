package paengine

import (
	"context"
	"errors"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/semerr"
)

// llmCallWithValidation runs the specification's "retries on invalid
// JSON" step for one iteration, generalizing the teacher's
// FileAnalyzer.Analyze ladder (truncation retry, brace/bracket repair,
// same-prompt higher-temperature retry, simpler fallback prompt) from a
// single file's analysis to a batch update of the PA record.
func (e *Engine) llmCallWithValidation(ctx context.Context, state *analysis.Project, tree string, contexts []fileContext) (analysis.Update, error) {
	temperature := 0.1
	var lastErr error

	for attempt := 0; attempt < e.cfg.Retries; attempt++ {
		if attempt > 0 {
			e.deps.Telemetry.IncLLMRetries()
		}
		messages := buildMessages(state, tree, contexts, temperature)

		resp, err := e.complete(ctx, messages, temperature, 4096)
		if err != nil {
			lastErr = err
			temperature += 0.1
			continue
		}

		if resp.FinishReason == "length" || resp.FinishReason == "MAX_TOKENS" {
			if retryResp, retryErr := e.complete(ctx, messages, temperature, 8192); retryErr == nil {
				resp = retryResp
			}
		}

		update, perr := parseUpdate(resp.Content)
		if perr != nil {
			update, perr = parseUpdate(tryRepairJSON(resp.Content))
		}
		if perr == nil {
			if verr := update.Validate(); verr == nil {
				return update, nil
			} else {
				perr = verr
			}
		}
		lastErr = perr
		temperature += 0.1
	}

	// Final fallback: a simpler prompt asking only for a best-effort
	// summary, tried once after the structured retries are exhausted.
	fallbackMsgs := buildFallbackMessages(tree, contexts)
	if resp, err := e.complete(ctx, fallbackMsgs, 0.0, 1024); err == nil {
		if update, perr := parseUpdate(resp.Content); perr == nil {
			if verr := update.Validate(); verr == nil {
				return update, nil
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("pa engine: exhausted retries without a valid response")
	}
	return analysis.Update{}, semerr.Schema("paengine_llm_call", lastErr)
}

// complete gates one completion call through the rate limiter and its
// transient-error retry wrapper.
func (e *Engine) complete(ctx context.Context, messages []llmprovider.Message, temperature float64, maxTokens int) (*llmprovider.CompletionResponse, error) {
	req := llmprovider.CompletionRequest{
		Model:       e.deps.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		JSONMode:    true,
	}
	estTokens := estimateRequestTokens(messages) + maxTokens

	return ratelimit.ExecuteWithRetry(ctx, e.deps.Limiter, e.deps.IsTransient, func(ctx context.Context) (*llmprovider.CompletionResponse, error) {
		if err := e.deps.Limiter.Acquire(ctx, estTokens); err != nil {
			return nil, err
		}
		e.deps.Telemetry.IncLLMCalls()
		return e.deps.Provider.Complete(ctx, req)
	})
}
