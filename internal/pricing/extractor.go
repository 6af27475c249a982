// Package pricing extracts plausible prices from free-form listing text.
package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

// Sanity bounds for extracted prices. Values outside this range are treated
// as noise (product counts, phone numbers, discount codes). Tunable; not tied
// to any one currency's notion of plausible.
const (
	MinPlausiblePrice = 100.0
	MaxPlausiblePrice = 1_000_000.0
)

// currencyPattern pairs a compiled price regex with whether matches followed
// by "off"/"discount" must be excluded (discount amounts, not sale prices).
type currencyPattern struct {
	re              *regexp.Regexp
	excludeDiscount bool
}

// One symbol-form and one code-form pattern per supported currency.
// Go's regexp has no lookahead, so the INR discount exclusion is applied
// against the text following each match in followedByDiscount.
var pricePatterns = []currencyPattern{
	{regexp.MustCompile(`₹\s?([\d,]+\.?\d*)`), true},
	{regexp.MustCompile(`(?i)\bINR\s?([\d,]+\.?\d*)\b`), true},
	{regexp.MustCompile(`€\s?([\d,]+\.?\d*)`), false},
	{regexp.MustCompile(`(?i)\bEUR\s?([\d,]+\.?\d*)\b`), false},
	{regexp.MustCompile(`£\s?([\d,]+\.?\d*)`), false},
	{regexp.MustCompile(`(?i)\bGBP\s?([\d,]+\.?\d*)\b`), false},
	{regexp.MustCompile(`¥\s?([\d,]+\.?\d*)`), false},
	{regexp.MustCompile(`(?i)\bJPY\s?([\d,]+\.?\d*)\b`), false},
	{regexp.MustCompile(`\$\s?([\d,]+\.?\d*)`), false},
	{regexp.MustCompile(`(?i)\bUSD\s?([\d,]+\.?\d*)\b`), false},
}

// ExtractPrice scans text for currency-tagged amounts and returns the most
// plausible one, or 0.0 when none is found. Snippets tend to show the
// discounted price before the full price, so the maximum survivor wins.
func ExtractPrice(text string) float64 {
	if text == "" {
		return 0.0
	}

	var prices []float64
	for _, p := range pricePatterns {
		matches := p.re.FindAllStringSubmatchIndex(text, -1)
		for _, m := range matches {
			if p.excludeDiscount && followedByDiscount(text, m[1]) {
				continue
			}

			raw := strings.ReplaceAll(text[m[2]:m[3]], ",", "")
			price, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			if price < MinPlausiblePrice || price > MaxPlausiblePrice {
				continue
			}
			prices = append(prices, price)
		}
	}

	best := 0.0
	for _, p := range prices {
		if p > best {
			best = p
		}
	}
	return best
}

// followedByDiscount reports whether the text right after a match marks the
// amount as a discount rather than a price.
func followedByDiscount(text string, end int) bool {
	rest := strings.ToLower(strings.TrimLeft(text[end:], " \t"))
	return strings.HasPrefix(rest, "off") || strings.HasPrefix(rest, "discount")
}

// ParseAmount parses a free-form price string ("$24.99", "1,299.00") into a
// float, returning 0.0 when no number can be recovered.
func ParseAmount(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	amount, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0.0
	}
	return amount
}
