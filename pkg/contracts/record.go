// Package contracts defines the records reposcout reconciles and the values
// produced while reconciling them.
package contracts

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/errors"
)

// ContractRecord is one row of the contracts view. ID is opaque and owned by the store.
type ContractRecord struct {
	ID          string `json:"id" yaml:"id"`
	Address     string `json:"address" yaml:"address"`
	OriginKey   string `json:"origin_key,omitempty" yaml:"origin_key,omitempty"`
	GitHubFound *bool  `json:"github_found,omitempty" yaml:"github_found,omitempty"`
	RepoCount   *int   `json:"repo_count,omitempty" yaml:"repo_count,omitempty"`
}

// Batch is the ordered set of records fetched for one run.
type Batch []ContractRecord

// IsProcessed reports whether the record already carries a repo count.
// Zero is a processed value; only an absent count means unprocessed.
func (r ContractRecord) IsProcessed() bool {
	return r.RepoCount != nil
}

// Unprocessed returns the records of b that have no repo count, keeping order.
func (b Batch) Unprocessed() Batch {
	out := make(Batch, 0, len(b))
	for _, r := range b {
		if !r.IsProcessed() {
			out = append(out, r)
		}
	}
	return out
}

// IDs returns the record ids of b in order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b))
	for i, r := range b {
		ids[i] = r.ID
	}
	return ids
}

var hexAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// ValidateAddress checks that an address can be used as a search term.
// 0x-prefixed values must be hex with at most 64 digits; other chains only
// need a single non-empty token.
func ValidateAddress(address string) error {
	trimmed := strings.TrimSpace(address)
	switch {
	case trimmed == "":
		return errors.NewValidationError(constants.FieldAddress, address, "address is empty")
	case len(trimmed) > constants.MaxAddressLength:
		return errors.NewValidationError(constants.FieldAddress, address, "address is too long")
	case strings.IndexFunc(trimmed, unicode.IsSpace) >= 0:
		return errors.NewValidationError(constants.FieldAddress, address, "address contains whitespace")
	case strings.HasPrefix(strings.ToLower(trimmed), "0x") && !hexAddress.MatchString(trimmed):
		return errors.NewValidationError(constants.FieldAddress, address, "malformed 0x address")
	}
	return nil
}
