package airtable

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/agentstation/reposcout/internal/utils/ptr"
	"github.com/agentstation/reposcout/pkg/contracts"
)

// listResponse is one page of GET /{base}/{table}.
type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

type record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// updateRequest is the body of PATCH /{base}/{table}/{id}.
type updateRequest struct {
	Fields   map[string]any `json:"fields"`
	Typecast bool           `json:"typecast"`
}

// toContract maps a raw record onto a ContractRecord using the configured columns.
func (f FieldNames) toContract(r record) contracts.ContractRecord {
	c := contracts.ContractRecord{
		ID:        r.ID,
		Address:   stringField(r.Fields[f.Address]),
		OriginKey: stringField(r.Fields[f.OriginKey]),
	}
	if v, ok := r.Fields[f.GitHubFound].(bool); ok {
		c.GitHubFound = ptr.To(v)
	}
	if n, ok := intField(r.Fields[f.RepoCount]); ok {
		c.RepoCount = ptr.To(n)
	}
	return c
}

func stringField(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []any:
		// lookup and rollup columns arrive as arrays
		if len(s) > 0 {
			return stringField(s[0])
		}
	}
	return ""
}

func intField(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(math.Round(n)), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, false
		}
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
