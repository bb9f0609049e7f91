package envelope

import (
	"callmap/internal/query"
	"callmap/internal/relocate"
)

// Builder assembles a response envelope step by step.
type Builder struct {
	resp *Response
}

// New starts an envelope with operational defaults: full confidence,
// no provenance. Operations that touch source code should follow with
// FromProvenance.
func New() *Builder {
	return &Builder{resp: &Response{
		SchemaVersion: CurrentSchemaVersion,
		Meta: Meta{
			Confidence: Confidence{Score: 1.0, Tier: TierHigh},
		},
	}}
}

// Data sets the payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

// FromProvenance derives confidence, provenance, and freshness
// metadata from an engine provenance record.
func (b *Builder) FromProvenance(p *query.Provenance) *Builder {
	if p == nil {
		return b
	}

	conf := Confidence{
		Score:   p.Completeness.Score,
		Tier:    ScoreToTier(p.Completeness.Score),
		Factors: confidenceFactors(p),
	}
	if p.Completeness.Reason != "" {
		conf.Reasons = append(conf.Reasons, p.Completeness.Reason)
	}
	b.resp.Meta.Confidence = conf
	b.resp.Meta.Provenance = Provenance{
		Providers: p.UsedProviders(),
		Workspace: p.Workspace,
	}

	if p.IndexedAt != "" {
		staleReason := ""
		if p.IndexStale {
			staleReason = StaleReasonSourceNewer
		}
		b.WithFreshness(p.IndexedAt, staleReason)
	}
	for _, w := range p.Warnings {
		b.Warning(w)
	}
	return b
}

// confidenceFactors translates provider consultation into scored
// factors. The index weighs heaviest in both directions.
func confidenceFactors(p *query.Provenance) []ConfidenceFactor {
	if len(p.Providers) == 0 {
		return nil
	}
	factors := make([]ConfidenceFactor, 0, len(p.Providers)+1)
	for _, pu := range p.Providers {
		f := ConfidenceFactor{Factor: pu.Name}
		switch {
		case pu.Used && pu.Available:
			f.Status = "available"
			if pu.Name == query.ProviderSCIP {
				f.Impact = 0.3
			} else {
				f.Impact = 0.1
			}
		case pu.Available:
			f.Status = "available_unused"
		default:
			f.Status = "unavailable"
			if pu.Name == query.ProviderSCIP {
				f.Impact = -0.2
			} else {
				f.Impact = -0.05
			}
		}
		factors = append(factors, f)
	}
	if p.IndexedAt != "" {
		indexFactor := ConfidenceFactor{Factor: "scip_index", Status: "fresh"}
		if p.IndexStale {
			indexFactor.Status = "stale"
			indexFactor.Impact = -0.1
		}
		factors = append(factors, indexFactor)
	}
	return factors
}

// WithRelocation rescores the envelope from a relocation match. The
// strategy that found the symbol says more about trustworthiness than
// the provider that produced the tree, so it wins.
func (b *Builder) WithRelocation(m *relocate.Match) *Builder {
	if m == nil {
		return b
	}
	tier := ConfidenceTier(m.Confidence)
	b.resp.Meta.Confidence.Score = TierScore(tier)
	b.resp.Meta.Confidence.Tier = tier
	b.resp.Meta.Confidence.Reasons = append(b.resp.Meta.Confidence.Reasons,
		"strategy: "+string(m.Strategy))
	return b
}

// WithTruncation records that the payload was cut short. A no-op when
// nothing was truncated.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}
	b.resp.Meta.Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}
	return b
}

// WithFreshness records index age. A stale index caps the tier at
// medium; the raw score is left alone so consumers still see it.
func (b *Builder) WithFreshness(indexedAt, staleReason string) *Builder {
	if indexedAt == "" && staleReason == "" {
		return b
	}
	b.resp.Meta.Freshness = &Freshness{
		IndexAge: &IndexAge{IndexedAt: indexedAt, StaleReason: staleReason},
	}
	if staleReason != "" && b.resp.Meta.Confidence.Tier == TierHigh {
		b.resp.Meta.Confidence.Tier = TierMedium
		b.resp.Meta.Confidence.Reasons = append(b.resp.Meta.Confidence.Reasons, "index-stale")
	}
	return b
}

// SuggestCall appends a follow-up suggestion.
func (b *Builder) SuggestCall(tool string, params map[string]interface{}, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Warning appends an uncoded warning.
func (b *Builder) Warning(message string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: message})
	return b
}

// WarningWithCode appends a coded warning.
func (b *Builder) WarningWithCode(code, message string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: message})
	return b
}

// Error marks the response failed. Confidence drops to the floor since
// there is no data to trust.
func (b *Builder) Error(message string) *Builder {
	b.resp.Error = &message
	b.resp.Meta.Confidence = Confidence{Score: 0, Tier: TierSpeculative}
	return b
}

// Build returns the assembled response.
func (b *Builder) Build() *Response {
	return b.resp
}

// Operational wraps a payload that does not depend on source analysis,
// such as listings straight from the store.
func Operational(data interface{}) *Response {
	return New().Data(data).Build()
}
