package service

import "github.com/R3E-Network/mirror_query/internal/filter"

// Descriptor advertises an endpoint service: the resource it lists and the
// query parameters it accepts. It does not change runtime behavior but lets
// the application log and document its surface consistently.
type Descriptor struct {
	Name     string
	Endpoint string
	// Capabilities lists the accepted query parameters, sorted.
	Capabilities []string
}

// NewDescriptor builds a descriptor whose capabilities are the keys of
// accepted.
func NewDescriptor(name, endpoint string, accepted filter.KeySet) Descriptor {
	keys := accepted.Keys()
	caps := make([]string, len(keys))
	for i, k := range keys {
		caps[i] = string(k)
	}
	return Descriptor{Name: name, Endpoint: endpoint, Capabilities: caps}
}

// WithCapabilities returns a copy of the descriptor with additional
// capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}
