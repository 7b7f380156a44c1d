// Package eval scores retrieval methods against benchmark ground truth and
// aggregates precision, recall and F1 per category of queries.
package eval

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
)

// Method names a retrieval strategy.
type Method string

const (
	MethodSPARQL Method = "sparql" // structured graph query
	MethodText   Method = "text"   // full-text search
	MethodLLM    Method = "llm"    // natural language translated to a structured query
)

// Methods lists every method in report order.
var Methods = []Method{MethodSPARQL, MethodText, MethodLLM}

// Field is the record key carrying the method's result set.
func (m Method) Field() string { return string(m) + "_results" }

// Ground truth keys, in lookup order.
var groundTruthFields = []string{"true_results", "results", "original_results"}

// ErrNotArray is returned for result files whose top level is not a JSON array.
var ErrNotArray = errors.New("result file is not a JSON array")

// Record is a benchmark entry with the result sets attached by retrieval methods.
// A method missing from Results was not run; an empty set means it ran and
// found nothing.
type Record struct {
	Query       benchgen.QuerySpec
	GroundTruth catalog.IDSet
	Results     map[Method]catalog.IDSet

	// Malformed lists the fields that were present but could not be decoded.
	Malformed []string
}

// Result returns the method's result set and whether the method ran.
func (r Record) Result(m Method) (catalog.IDSet, bool) {
	s, ok := r.Results[m]
	return s, ok
}

// UnmarshalJSON decodes a record. Undecodable result fields are recorded in
// Malformed and treated as absent rather than failing the record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = Record{Results: make(map[Method]catalog.IDSet)}

	if raw, ok := fields["query"]; ok {
		q, err := decodeQuery(raw)
		if err != nil {
			r.Malformed = append(r.Malformed, "query")
		}
		r.Query = q
	}
	if r.Query == nil {
		r.Query = benchgen.QuerySpec{}
	}

	for _, key := range groundTruthFields {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		ids, err := decodeIDs(raw)
		if err != nil {
			r.Malformed = append(r.Malformed, key)
			break
		}
		r.GroundTruth = catalog.NewIDSet(ids...)
		break
	}

	for _, m := range Methods {
		raw, ok := fields[m.Field()]
		if !ok || isNull(raw) {
			continue
		}
		ids, err := decodeIDs(raw)
		if err != nil {
			r.Malformed = append(r.Malformed, m.Field())
			continue
		}
		r.Results[m] = catalog.NewIDSet(ids...)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeQuery(raw json.RawMessage) (benchgen.QuerySpec, error) {
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	q := make(benchgen.QuerySpec, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case string:
			q[k] = x
		case json.Number:
			q[k] = x.String()
		case bool:
			q[k] = fmt.Sprint(x)
		case nil:
			q[k] = ""
		default:
			return nil, fmt.Errorf("query value %q is not a scalar", k)
		}
	}
	return q, nil
}

func decodeIDs(raw json.RawMessage) ([]catalog.ItemID, error) {
	var values []interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	ids := make([]catalog.ItemID, 0, len(values))
	for _, v := range values {
		id, err := catalog.CanonicalID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ReadRecords decodes a result file's contents. Elements that are not objects,
// or whose query is not an object, are dropped and reported through the
// returned count.
func ReadRecords(data []byte) ([]Record, int, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNotArray, err)
	}

	records := make([]Record, 0, len(elems))
	invalid := 0
	for _, raw := range elems {
		if err := ValidateRecord(raw); err != nil {
			invalid++
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			invalid++
			continue
		}
		records = append(records, rec)
	}
	return records, invalid, nil
}

// LoadRecords reads and decodes a result file.
func LoadRecords(path string) ([]Record, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return ReadRecords(data)
}
