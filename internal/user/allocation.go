package user

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Allocation is a three-bucket portfolio split as generated for the user
type Allocation struct {
	Low    *AllocationBucket `json:"low_risk_investments,omitempty"`
	Medium *AllocationBucket `json:"medium_risk_investments,omitempty"`
	High   *AllocationBucket `json:"high_risk_investments,omitempty"`
}

// AllocationBucket is one risk bucket and its per-asset breakdown
type AllocationBucket struct {
	Percentage float64   `json:"percentage"`
	Breakdown  Breakdown `json:"breakdown"`
}

// Holding is one asset line inside a bucket
type Holding struct {
	Asset      string
	Percentage float64
}

// Breakdown keeps holdings in the order they were generated. It is encoded as
// a JSON object keyed by asset name.
type Breakdown []Holding

// MarshalJSON writes the holdings as an ordered JSON object
func (b Breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, h := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(h.Asset)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(h.Percentage)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of asset -> percentage, preserving key order
func (b *Breakdown) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*b = Breakdown{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("breakdown must be a JSON object")
	}

	out := Breakdown{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("breakdown key must be a string")
		}
		var pct float64
		if err := dec.Decode(&pct); err != nil {
			return fmt.Errorf("breakdown %q: %w", key, err)
		}
		out = append(out, Holding{Asset: key, Percentage: pct})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}

// Buckets returns the buckets with their JSON names in display order. Missing
// buckets are returned as nil.
func (a Allocation) Buckets() []NamedBucket {
	return []NamedBucket{
		{Key: "low_risk_investments", Bucket: a.Low},
		{Key: "medium_risk_investments", Bucket: a.Medium},
		{Key: "high_risk_investments", Bucket: a.High},
	}
}

// NamedBucket pairs a bucket with its JSON key
type NamedBucket struct {
	Key    string
	Bucket *AllocationBucket
}
