package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a value cannot be turned into an ItemID.
var ErrInvalidID = errors.New("invalid item id")

// ItemID is the canonical form of a catalog identifier.
//
// Identifiers arrive as JSON numbers, numeric strings or opaque strings depending
// on which collaborator produced them. Decimal integer spellings ("7", " 007 ",
// "+7", "7.0") canonicalize to their base-10 form ("7") at any length. JSON
// numbers canonicalize by exact value, so 1e3 and 1000 agree. Every other string
// is kept verbatim after trimming whitespace: "1e3" and "sku-12" stay as they are.
type ItemID string

// ParseID canonicalizes a textual identifier.
func ParseID(s string) (ItemID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if n, ok := canonicalInteger(s); ok {
		return ItemID(n), nil
	}
	return ItemID(s), nil
}

// canonicalInteger normalizes an optional sign, digits and an optional
// all-zero fraction. It works on the digits directly, so no length is lost.
func canonicalInteger(s string) (string, bool) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if whole, frac, found := strings.Cut(s, "."); found {
		if frac == "" || strings.Trim(frac, "0") != "" {
			return "", false
		}
		s = whole
	}
	if s == "" || !allDigits(s) {
		return "", false
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0", true
	}
	if neg {
		return "-" + s, true
	}
	return s, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CanonicalID canonicalizes an identifier of any scalar type.
func CanonicalID(v interface{}) (ItemID, error) {
	switch x := v.(type) {
	case ItemID:
		return ParseID(string(x))
	case string:
		return ParseID(x)
	case json.Number:
		return fromNumber(x.String())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("%w: %v", ErrInvalidID, x)
		}
		return fromFloat(x), nil
	case float32:
		return CanonicalID(float64(x))
	case int:
		return ItemID(strconv.FormatInt(int64(x), 10)), nil
	case int32:
		return ItemID(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return ItemID(strconv.FormatInt(x, 10)), nil
	case uint:
		return ItemID(strconv.FormatUint(uint64(x), 10)), nil
	case uint32:
		return ItemID(strconv.FormatUint(uint64(x), 10)), nil
	case uint64:
		return ItemID(strconv.FormatUint(x, 10)), nil
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidID, v)
	}
}

// fromNumber canonicalizes a JSON number literal by its exact value.
func fromNumber(lit string) (ItemID, error) {
	if n, ok := canonicalInteger(lit); ok {
		return ItemID(n), nil
	}
	r, ok := new(big.Rat).SetString(lit)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, lit)
	}
	if r.IsInt() {
		return ItemID(r.Num().String()), nil
	}
	return ItemID(lit), nil
}

func fromFloat(f float64) ItemID {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ItemID(strconv.FormatInt(int64(f), 10))
	}
	return ItemID(strconv.FormatFloat(f, 'f', -1, 64))
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseID(s)
		if err != nil {
			return err
		}
		*id = v
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	v, err := CanonicalID(raw)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// MarshalJSON writes integral identifiers as JSON numbers, the rest as strings.
func (id ItemID) MarshalJSON() ([]byte, error) {
	if id.IsInteger() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// IsInteger reports whether id is a canonical decimal integer.
func (id ItemID) IsInteger() bool {
	s := strings.TrimPrefix(string(id), "-")
	return s != "" && allDigits(s) && (s == "0" || s[0] != '0')
}

// Less orders identifiers numerically when both are integral, integral ones
// first, and lexically otherwise.
func Less(a, b ItemID) bool {
	intA, intB := a.IsInteger(), b.IsInteger()
	switch {
	case intA && intB:
		return compareIntegers(string(a), string(b)) < 0
	case intA != intB:
		return intA
	default:
		return a < b
	}
}

// compareIntegers compares canonical decimal integers of any length.
func compareIntegers(a, b string) int {
	negA, negB := strings.HasPrefix(a, "-"), strings.HasPrefix(b, "-")
	if negA != negB {
		if negA {
			return -1
		}
		return 1
	}
	a, b = strings.TrimPrefix(a, "-"), strings.TrimPrefix(b, "-")
	c := len(a) - len(b)
	if c == 0 {
		c = strings.Compare(a, b)
	}
	if negA {
		return -c
	}
	return c
}

// SortIDs sorts ids ascending in place.
func SortIDs(ids []ItemID) {
	sort.Slice(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

// IDSet is a set of canonical identifiers.
type IDSet map[ItemID]struct{}

// NewIDSet builds a set; duplicates collapse.
func NewIDSet(ids ...ItemID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports membership.
func (s IDSet) Contains(id ItemID) bool {
	_, ok := s[id]
	return ok
}

// IntersectionSize counts identifiers present in both sets.
func (s IDSet) IntersectionSize(other IDSet) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for id := range small {
		if large.Contains(id) {
			n++
		}
	}
	return n
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []ItemID {
	out := make([]ItemID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	SortIDs(out)
	return out
}
