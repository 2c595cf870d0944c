package services

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// PayloadKind names the observed response shapes of the upstream AJAX
// endpoints. The site is inconsistent: the same endpoint answers with a
// paginated envelope, a DataTables envelope, or a bare array depending on
// the page that triggered it.
type PayloadKind string

const (
	PayloadData     PayloadKind = "data"   // {"data": [...], "total": N, ...}
	PayloadRanges   PayloadKind = "ranges" // {"ranges": [...]}
	PayloadAAData   PayloadKind = "aadata" // {"aaData": [...]} (DataTables)
	PayloadBareList PayloadKind = "list"   // [...]
)

// RowsPayload is the decoded tagged union: which shape arrived, its rows,
// and the total row count when the envelope carried one.
type RowsPayload struct {
	Kind  PayloadKind
	Rows  []json.RawMessage
	Total int64
}

type rowsEnvelope struct {
	Data   []json.RawMessage `json:"data"`
	Ranges []json.RawMessage `json:"ranges"`
	AAData []json.RawMessage `json:"aaData"`
	Total  json.Number       `json:"total"`
}

// ParseRowsPayload decodes an upstream response body into a RowsPayload.
// Exactly one variant matches; anything else is a malformed payload.
func ParseRowsPayload(body []byte) (*RowsPayload, error) {
	// Bare array first: an envelope decode would silently drop it.
	var bare []json.RawMessage
	if err := json.Unmarshal(body, &bare); err == nil {
		return &RowsPayload{Kind: PayloadBareList, Rows: bare, Total: int64(len(bare))}, nil
	}

	var env rowsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed upstream payload: %w", err)
	}

	switch {
	case env.Data != nil:
		total := int64(len(env.Data))
		if n, err := env.Total.Int64(); err == nil && n > 0 {
			total = n
		}
		return &RowsPayload{Kind: PayloadData, Rows: env.Data, Total: total}, nil
	case env.Ranges != nil:
		return &RowsPayload{Kind: PayloadRanges, Rows: env.Ranges, Total: int64(len(env.Ranges))}, nil
	case env.AAData != nil:
		return &RowsPayload{Kind: PayloadAAData, Rows: env.AAData, Total: int64(len(env.AAData))}, nil
	default:
		return nil, fmt.Errorf("upstream payload matches no known shape")
	}
}

// rowField reads a value from one row, which is either a JSON object (try
// the keys in order) or a positional array (use the index).
func rowField(row json.RawMessage, index int, keys ...string) string {
	var obj map[string]any
	if err := json.Unmarshal(row, &obj); err == nil {
		for _, key := range keys {
			if v, ok := obj[key]; ok {
				return stringify(v)
			}
		}
		return ""
	}

	var arr []any
	if err := json.Unmarshal(row, &arr); err == nil && index >= 0 && index < len(arr) {
		return stringify(arr[index])
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
