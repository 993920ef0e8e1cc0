package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ajitpratap0/moneymind/internal/user"
)

// StructureError means the text did not have the expected shape
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return e.Reason
}

// FormatError means the JSON itself could not be decoded
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return "invalid portfolio JSON: " + e.Err.Error()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

var fencedObject = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ParseResponse extracts the allocation from model output. The JSON may be
// inside a ```json fence or be the whole trimmed text.
func ParseResponse(text string) (user.Allocation, error) {
	var raw string
	if m := fencedObject.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else {
		raw = strings.TrimSpace(text)
		if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
			return user.Allocation{}, &StructureError{Reason: "Response doesn't contain the expected JSON structure."}
		}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return user.Allocation{}, &FormatError{Err: err}
	}

	allocRaw, ok := doc["portfolio_allocation"]
	if !ok {
		return user.Allocation{}, &StructureError{Reason: "Missing 'portfolio_allocation' key in generated JSON."}
	}

	var buckets map[string]json.RawMessage
	if err := json.Unmarshal(allocRaw, &buckets); err != nil {
		return user.Allocation{}, &FormatError{Err: err}
	}

	var out user.Allocation
	targets := map[string]**user.AllocationBucket{
		"low_risk_investments":    &out.Low,
		"medium_risk_investments": &out.Medium,
		"high_risk_investments":   &out.High,
	}
	for _, nb := range out.Buckets() {
		b, ok := buckets[nb.Key]
		if !ok || string(b) == "null" {
			return user.Allocation{}, &StructureError{Reason: fmt.Sprintf("Missing category '%s' in generated JSON.", nb.Key)}
		}
		var bucket user.AllocationBucket
		if err := json.Unmarshal(b, &bucket); err != nil {
			return user.Allocation{}, &FormatError{Err: fmt.Errorf("%s: %w", nb.Key, err)}
		}
		if bucket.Breakdown == nil {
			bucket.Breakdown = user.Breakdown{}
		}
		*targets[nb.Key] = &bucket
	}
	return out, nil
}

// IsFormatError reports whether err came from JSON decoding
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsStructureError reports whether err is a shape problem
func IsStructureError(err error) bool {
	var se *StructureError
	return errors.As(err, &se)
}
