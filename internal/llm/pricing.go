// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

// modelPrice is a (input, output) USD-per-token pair.
type modelPrice struct {
	InputPerToken  float64
	OutputPerToken float64
}

// priceTable maps a model name to its per-token price. Unknown models
// yield a nil estimate (spec.md §4.1: "unknown models yield cost null").
// Values are illustrative list prices, not live rate-card data.
var priceTable = map[string]modelPrice{
	"claude-3-5-sonnet-20240620": {InputPerToken: 3.0 / 1_000_000, OutputPerToken: 15.0 / 1_000_000},
	"claude-3-5-haiku-20241022":  {InputPerToken: 0.8 / 1_000_000, OutputPerToken: 4.0 / 1_000_000},
	"gpt-4o":                     {InputPerToken: 2.5 / 1_000_000, OutputPerToken: 10.0 / 1_000_000},
	"gpt-4o-mini":                {InputPerToken: 0.15 / 1_000_000, OutputPerToken: 0.6 / 1_000_000},
}

// EstimateCost returns the estimated USD cost of a completion, or nil if
// model is not in the price table.
func EstimateCost(model string, inputTokens, outputTokens int) *float64 {
	price, ok := priceTable[model]
	if !ok {
		return nil
	}
	cost := float64(inputTokens)*price.InputPerToken + float64(outputTokens)*price.OutputPerToken
	return &cost
}
