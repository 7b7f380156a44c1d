package eval

import (
	"encoding/json"
	"math/big"

	"github.com/XiaoConstantine/prodeval/pkg/catalog"
)

// Triple holds precision, recall and F1 as exact fractions.
type Triple struct {
	Precision *big.Rat
	Recall    *big.Rat
	F1        *big.Rat
}

// ZeroTriple returns (0, 0, 0).
func ZeroTriple() Triple {
	return Triple{Precision: new(big.Rat), Recall: new(big.Rat), F1: new(big.Rat)}
}

// Floats returns the float64 views.
func (t Triple) Floats() (precision, recall, f1 float64) {
	precision, _ = t.Precision.Float64()
	recall, _ = t.Recall.Float64()
	f1, _ = t.F1.Float64()
	return precision, recall, f1
}

// Add returns t + o without modifying either operand.
func (t Triple) Add(o Triple) Triple {
	return Triple{
		Precision: new(big.Rat).Add(t.Precision, o.Precision),
		Recall:    new(big.Rat).Add(t.Recall, o.Recall),
		F1:        new(big.Rat).Add(t.F1, o.F1),
	}
}

// Div returns t / n, or zero when n is 0.
func (t Triple) Div(n int) Triple {
	if n == 0 {
		return ZeroTriple()
	}
	d := new(big.Rat).SetInt64(int64(n))
	return Triple{
		Precision: new(big.Rat).Quo(t.Precision, d),
		Recall:    new(big.Rat).Quo(t.Recall, d),
		F1:        new(big.Rat).Quo(t.F1, d),
	}
}

// MarshalJSON renders each component as "num/den".
func (t Triple) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Precision string `json:"precision"`
		Recall    string `json:"recall"`
		F1        string `json:"f1"`
	}{t.Precision.String(), t.Recall.String(), t.F1.String()})
}

// CalculateMetrics scores a result set against the ground truth.
// Precision is 0 for an empty result, recall is 0 for an empty ground truth
// and F1 is 0 when both precision and recall are 0.
func CalculateMetrics(result, truth catalog.IDSet) Triple {
	t := ZeroTriple()
	tp := int64(result.IntersectionSize(truth))
	if len(result) > 0 {
		t.Precision.SetFrac64(tp, int64(len(result)))
	}
	if len(truth) > 0 {
		t.Recall.SetFrac64(tp, int64(len(truth)))
	}
	// 2PR/(P+R) reduces to 2tp/(|R|+|G|).
	if tp > 0 {
		t.F1.SetFrac64(2*tp, int64(len(result)+len(truth)))
	}
	return t
}
