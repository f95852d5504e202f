package model

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// defaultPricing provides hardcoded USD pricing per 1M tokens (text tokens).
var defaultPricing = map[string]Pricing{
	// Source: Gemini pricing (Standard; text).
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.0-flash":      {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-1.5-flash":      {InputPerM: 0.075, OutputPerM: 0.30},
}

// ResolvePricing returns hardcoded pricing for a model, ignoring a "models/" prefix.
func ResolvePricing(model string) Pricing {
	p, ok := defaultPricing[strings.TrimPrefix(model, "models/")]
	if !ok {
		// unknown models are tracked with zero cost
		return Pricing{}
	}
	return p
}

// ComputeCost converts token usage to USD cost using per-1M Pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) (inputCost, outputCost, total float64) {
	if usage == nil {
		return 0, 0, 0
	}
	inputCost = p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	outputCost = p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	total = inputCost + outputCost
	return
}

type turnStatsKey struct{}

// WithTurnStats attaches per-turn accounting to ctx.
func WithTurnStats(ctx context.Context, stats *TurnStats) context.Context {
	return context.WithValue(ctx, turnStatsKey{}, stats)
}

// TurnStatsFrom returns the accounting attached to ctx, or nil.
func TurnStatsFrom(ctx context.Context) *TurnStats {
	stats, _ := ctx.Value(turnStatsKey{}).(*TurnStats)
	return stats
}
