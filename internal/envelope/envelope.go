// Package envelope wraps every tool and CLI response in a common
// structure carrying confidence, provenance, and truncation metadata
// alongside the data payload.
package envelope

// CurrentSchemaVersion identifies the envelope format. Bump on any
// breaking change to the response shape.
const CurrentSchemaVersion = "1.0"

// ConfidenceTier buckets a confidence score for consumers that do not
// want to interpret raw numbers.
type ConfidenceTier string

const (
	// TierHigh marks answers backed by a fresh index or an exact
	// structural match.
	TierHigh ConfidenceTier = "high"
	// TierMedium marks answers from a live language server, a stale
	// index, or a name-based structural match.
	TierMedium ConfidenceTier = "medium"
	// TierLow marks answers from syntax-only extraction or line
	// scanning.
	TierLow ConfidenceTier = "low"
	// TierSpeculative marks best guesses, such as a stored line
	// accepted without verification.
	TierSpeculative ConfidenceTier = "speculative"
)

// ConfidenceFactor explains one input to a confidence score.
type ConfidenceFactor struct {
	Factor string  `json:"factor"`
	Status string  `json:"status"`
	Impact float64 `json:"impact"`
}

// Confidence grades how much to trust the data payload.
type Confidence struct {
	Score   float64            `json:"score"`
	Tier    ConfidenceTier     `json:"tier"`
	Reasons []string           `json:"reasons,omitempty"`
	Factors []ConfidenceFactor `json:"factors,omitempty"`
}

// Provenance names the providers that produced the data.
type Provenance struct {
	Providers []string `json:"providers,omitempty"`
	Workspace string   `json:"workspace,omitempty"`
}

// IndexAge reports when the backing index was produced and, when it is
// considered stale, why.
type IndexAge struct {
	IndexedAt   string `json:"indexedAt,omitempty"`
	StaleReason string `json:"staleReason,omitempty"`
}

// Freshness qualifies how current the backing data is.
type Freshness struct {
	IndexAge *IndexAge `json:"indexAge,omitempty"`
}

// Truncation reports that a payload was cut short and by how much.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`
	Total       int    `json:"total,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Meta carries everything about a response other than the data itself.
type Meta struct {
	Confidence Confidence  `json:"confidence"`
	Provenance Provenance  `json:"provenance"`
	Freshness  *Freshness  `json:"freshness,omitempty"`
	Truncation *Truncation `json:"truncation,omitempty"`
}

// SuggestedCall points the caller at a useful follow-up invocation.
type SuggestedCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

// Warning is a non-fatal condition the caller should see.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Response is the envelope around every payload.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion"`
	Data               interface{}     `json:"data,omitempty"`
	Meta               Meta            `json:"meta"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	Error              *string         `json:"error,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
}
