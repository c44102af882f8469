// Package institution resolves contract numbers to institution names. The
// authoritative mapping lives in a Google spreadsheet maintained outside
// this system; providers abstract where the mapping actually comes from so
// the pipeline can be tested with a fake and survive an unreachable sheet
// via the local cache.
package institution

import "context"

// ContractNumberLength is the fixed suffix length of the contract number
// embedded at the end of a row's business-details field.
const ContractNumberLength = 9

// Provider supplies the contract-number to institution-name mapping.
// An empty map means "unavailable", never "there are no institutions".
type Provider interface {
	Fetch(ctx context.Context) (map[string]string, error)
}

// StaticProvider serves a fixed in-memory mapping. Used by tests and by
// runs that opt out of the external collaborator.
type StaticProvider map[string]string

// Fetch returns the static mapping.
func (p StaticProvider) Fetch(ctx context.Context) (map[string]string, error) {
	return p, nil
}

// ContractNumber extracts the trailing contract number from a
// business-details field. Fields shorter than the fixed length are returned
// whole; they will simply miss the map and resolve to the sentinel.
func ContractNumber(businessDetails string) string {
	runes := []rune(businessDetails)
	if len(runes) <= ContractNumberLength {
		return businessDetails
	}
	return string(runes[len(runes)-ContractNumberLength:])
}
