package query

// Provider names as they appear in provenance and status payloads.
const (
	ProviderSCIP       = "scip"
	ProviderLSP        = "lsp"
	ProviderTreeSitter = "treesitter"
)

// Completeness scores per serving provider. The envelope layer maps
// scores onto confidence tiers, so each constant sits deliberately
// above or below a tier threshold.
const (
	scoreSCIPFresh  = 0.95
	scoreLSP        = 0.85
	scoreSCIPStale  = 0.75
	scoreTreeSitter = 0.50
)

// ProviderUse records whether a provider could have served a query and
// whether it actually did.
type ProviderUse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Used      bool   `json:"used"`
}

// Completeness grades how authoritative the serving provider was for
// this particular query.
type Completeness struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// Provenance describes how an operation was answered: which providers
// were consulted, which one served, and how fresh its data was. Every
// engine operation that touches source code returns one.
type Provenance struct {
	Providers    []ProviderUse `json:"providers"`
	Workspace    string        `json:"workspace,omitempty"`
	Completeness Completeness  `json:"completeness"`
	IndexStale   bool          `json:"indexStale,omitempty"`
	IndexedAt    string        `json:"indexedAt,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
}

func (p *Provenance) record(name string, available, used bool) {
	p.Providers = append(p.Providers, ProviderUse{Name: name, Available: available, Used: used})
}

// UsedProviders returns the names of the providers that served the
// query, in consultation order.
func (p *Provenance) UsedProviders() []string {
	var out []string
	for _, pu := range p.Providers {
		if pu.Used {
			out = append(out, pu.Name)
		}
	}
	return out
}
