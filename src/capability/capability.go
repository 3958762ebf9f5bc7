package capability

// Capability is a remotely owned unit of agent functionality discovered from
// the coordinator. CapabilityID is the only field used for identity and
// routing; Endpoint is informational, calls always go through the
// coordinator's workflow API.
type Capability struct {
	AgentID      string  `json:"did"`
	CapabilityID string  `json:"capabilityId"`
	Description  string  `json:"description,omitempty"`
	Endpoint     string  `json:"endpoint,omitempty"`
	Reputation   float64 `json:"reputation,omitempty"`
}

// Normalize fills the documented defaults for optional discovery fields:
// a missing description falls back to the raw capability id, a missing
// reputation decodes as zero.
func (c *Capability) Normalize() {
	if c.Description == "" {
		c.Description = c.CapabilityID
	}
}

// SearchHit is a single result from the registry's free-text discovery
// endpoint.
type SearchHit struct {
	CapabilityID string  `json:"capabilityId"`
	Description  string  `json:"description"`
	Reputation   float64 `json:"reputation"`
}
