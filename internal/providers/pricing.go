package providers

import "strings"

// modelPrice is the price in USD per million tokens, input and output
// priced independently.
type modelPrice struct {
	Input  float64
	Output float64
}

// fallbackPrice is used for model identifiers missing from the table. It
// is deliberately on the expensive side so unknown models never
// under-report cost.
var fallbackPrice = modelPrice{Input: 5.0, Output: 15.0}

// priceTable maps model identifier prefixes to prices. Longest matching
// prefix wins.
var priceTable = map[string]modelPrice{
	"gpt-4o":            {Input: 2.5, Output: 10.0},
	"gpt-4o-mini":       {Input: 0.15, Output: 0.6},
	"gpt-4.1":           {Input: 2.0, Output: 8.0},
	"gpt-4.1-mini":      {Input: 0.4, Output: 1.6},
	"o3-mini":           {Input: 1.1, Output: 4.4},
	"claude-opus-4":     {Input: 15.0, Output: 75.0},
	"claude-sonnet-4":   {Input: 3.0, Output: 15.0},
	"claude-haiku-4":    {Input: 0.8, Output: 4.0},
	"claude-3-5-sonnet": {Input: 3.0, Output: 15.0},
	"claude-3-5-haiku":  {Input: 0.8, Output: 4.0},
	"gemini-2.5-pro":    {Input: 1.25, Output: 10.0},
	"gemini-2.5-flash":  {Input: 0.3, Output: 2.5},
	"gemini-2.0-flash":  {Input: 0.1, Output: 0.4},
}

// priceFor returns the price entry for a model identifier, matching on
// the longest table prefix. The openrouter/ routing prefix and vendor
// path segments are ignored for lookup.
func priceFor(model string) modelPrice {
	model = strings.TrimPrefix(model, "openrouter/")
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}

	best := ""
	for prefix := range priceTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return fallbackPrice
	}
	return priceTable[best]
}

// EstimateCost returns the estimated USD cost for a call given estimated
// input and output token counts.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p := priceFor(model)
	return float64(inputTokens)/1e6*p.Input + float64(outputTokens)/1e6*p.Output
}
