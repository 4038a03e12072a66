package oracle

import "fmt"

// instructionTemplate is the fixed contract with the formatting oracle. The
// oracle both judges whether the text is a trading signal and extracts its
// fields; it must leave a field empty rather than guess, and must not modify
// any digits. Prices travel as JSON strings so exact digits survive the trip.
const instructionTemplate = `You are a trading signal validator and extractor.

Original message:
%s

Step 1 - Validation:
A valid trading signal usually has:
- Entry price or range
- Stop loss
- Direction (buy/sell)
- Take profit (optional)

Step 2 - Extraction rules:
1. Extract exactly these fields: asset, side (BUY or SELL), entry (one or two
   prices), stop_loss, take_profits (multiple targets if present).
2. Keep exact numbers, don't modify values. Emit every number as a string.
3. Keep entry prices and take-profit targets in the order they appear.
4. Leave a field empty if it is absent from the message. Never guess.
5. If the message says "Buy now" or "Sell now", set "at" to "NOW".
6. Ignore any extra text or commentary.

Respond with a single JSON object and nothing else:
{
  "valid": true or false,
  "reason": "if invalid, explain why; if valid, write 'Valid trading signal'",
  "asset": "symbol",
  "side": "BUY or SELL",
  "entry": ["price"] or ["price1", "price2"],
  "stop_loss": "price or empty",
  "take_profits": ["tp1", "tp2"],
  "at": "NOW or empty"
}`

func buildPrompt(rawText string) string {
	return fmt.Sprintf(instructionTemplate, rawText)
}
