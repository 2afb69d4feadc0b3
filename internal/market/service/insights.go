package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"lead_routing_backend/internal/domain"
)

// Position describes where a provider's price sits relative to the city median.
type Position string

const (
	PositionBelowMarket   Position = "below_market"
	PositionMarketAligned Position = "market_aligned"
	PositionPremium       Position = "premium"
)

// PositionInsight is an informational comparison; it never sets a price.
type PositionInsight struct {
	Position    Position `json:"position"`
	DiffPercent float64  `json:"diffPercent"`
	Message     string   `json:"message"`
}

// DataQualityFor buckets a sample size the way the aggregator does.
func DataQualityFor(sampleSize int) domain.DataQuality {
	switch {
	case sampleSize >= 30:
		return domain.QualityHigh
	case sampleSize >= MinSampleSize:
		return domain.QualityMedium
	default:
		return domain.QualityLow
	}
}

// FormatPriceRange renders a range as "$1.5k–$2k", or plain dollars below 1000.
func FormatPriceRange(low, high float64) string {
	return formatPrice(low) + "–" + formatPrice(high)
}

func formatPrice(v float64) string {
	if v >= 1000 {
		k := strconv.FormatFloat(v/1000, 'f', 1, 64)
		return "$" + strings.TrimSuffix(k, ".0") + "k"
	}
	return fmt.Sprintf("$%d", int(math.Round(v)))
}

// MarketPosition compares a provider midpoint with the city median. More
// than 10% under is below market, more than 10% over is premium.
func MarketPosition(providerMidpoint, median float64) PositionInsight {
	if median <= 0 {
		return PositionInsight{Position: PositionMarketAligned, Message: "Not enough market data to compare your pricing."}
	}

	diff := (providerMidpoint - median) / median * 100
	rounded := math.Round(diff)

	switch {
	case diff < -10:
		return PositionInsight{
			Position:    PositionBelowMarket,
			DiffPercent: rounded,
			Message:     fmt.Sprintf("You are currently priced %d%% below the city median.", int(math.Abs(rounded))),
		}
	case diff > 10:
		return PositionInsight{
			Position:    PositionPremium,
			DiffPercent: rounded,
			Message:     fmt.Sprintf("You are currently priced %d%% above the city median.", int(rounded)),
		}
	default:
		return PositionInsight{
			Position:    PositionMarketAligned,
			DiffPercent: rounded,
			Message:     "Your pricing is aligned with the city median.",
		}
	}
}

// SuggestedRange is the median ±20%, each end rounded to the nearest 50.
func SuggestedRange(median float64) (low, high float64) {
	round50 := func(v float64) float64 { return math.Round(v/50) * 50 }
	return round50(median * 0.8), round50(median * 1.2)
}
