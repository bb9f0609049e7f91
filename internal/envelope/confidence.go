package envelope

// Tier thresholds over completeness scores.
const (
	thresholdHigh   = 0.95
	thresholdMedium = 0.70
	thresholdLow    = 0.30
)

// StaleReasonSourceNewer flags an index older than the source file it
// describes.
const StaleReasonSourceNewer = "source-newer-than-index"

// ScoreToTier buckets a completeness score into a tier.
func ScoreToTier(score float64) ConfidenceTier {
	switch {
	case score >= thresholdHigh:
		return TierHigh
	case score >= thresholdMedium:
		return TierMedium
	case score >= thresholdLow:
		return TierLow
	default:
		return TierSpeculative
	}
}

// TierScore is the representative score for a tier, used when a source
// reports a tier without a numeric score.
func TierScore(tier ConfidenceTier) float64 {
	switch tier {
	case TierHigh:
		return 1.0
	case TierMedium:
		return 0.8
	case TierLow:
		return 0.5
	default:
		return 0.2
	}
}
