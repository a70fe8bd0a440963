package nodes

import (
	"fmt"

	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/pkg/errors"
)

// Kind identifies the operator implemented by a node.
type Kind int

// Node kinds.
const (
	InputValue Kind = iota
	LearnableParameter
	Plus
	Minus
	Scale
	Negate
	Times
	TransposeTimes
	ElementTimes
	RowElementTimes
	ColumnElementTimes
	DiagTimes
	SumElements
	SumColumnElements
	Transpose
	Diagonal
	CosDistance
	CosDistanceWithNegativeSamples
	KhatriRaoProduct
	StrideTimes

	numKinds
)

var kindNames = [numKinds]string{
	InputValue:                     "InputValue",
	LearnableParameter:             "LearnableParameter",
	Plus:                           "Plus",
	Minus:                          "Minus",
	Scale:                          "Scale",
	Negate:                         "Negate",
	Times:                          "Times",
	TransposeTimes:                 "TransposeTimes",
	ElementTimes:                   "ElementTimes",
	RowElementTimes:                "RowElementTimes",
	ColumnElementTimes:             "ColumnElementTimes",
	DiagTimes:                      "DiagTimes",
	SumElements:                    "SumElements",
	SumColumnElements:              "SumColumnElements",
	Transpose:                      "Transpose",
	Diagonal:                       "Diagonal",
	CosDistance:                    "CosDistance",
	CosDistanceWithNegativeSamples: "CosDistanceWithNegativeSamples",
	KhatriRaoProduct:               "KhatriRaoProduct",
	StrideTimes:                    "StrideTimes",
}

// kindArity is the fixed number of inputs of each operator.
var kindArity = [numKinds]int{
	InputValue:                     0,
	LearnableParameter:             0,
	Plus:                           2,
	Minus:                          2,
	Scale:                          2,
	Negate:                         1,
	Times:                          2,
	TransposeTimes:                 2,
	ElementTimes:                   2,
	RowElementTimes:                2,
	ColumnElementTimes:             2,
	DiagTimes:                      2,
	SumElements:                    1,
	SumColumnElements:              1,
	Transpose:                      1,
	Diagonal:                       1,
	CosDistance:                    2,
	CosDistanceWithNegativeSamples: 4,
	KhatriRaoProduct:               2,
	StrideTimes:                    3,
}

// String returns the operator name.
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Arity returns the number of inputs the operator takes.
func (k Kind) Arity() int {
	if k < 0 || k >= numKinds {
		return -1
	}
	return kindArity[k]
}

// IsLeaf reports whether the kind has no inputs.
func (k Kind) IsLeaf() bool {
	return k == InputValue || k == LearnableParameter
}

// Kinds returns every operator kind, leaves first.
func Kinds() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// KindByName looks up a kind by its operator name.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// New creates an operator node of the given kind. Leaves have their own
// constructors (NewInput, NewParameter) since they take dimensions, not inputs.
func New[T tensor.Float](kind Kind, name string, inputs ...Node[T]) (Node[T], error) {
	if kind < 0 || kind >= numKinds {
		return nil, errors.Errorf("node %q: unknown kind %d", name, int(kind))
	}
	if kind.IsLeaf() {
		return nil, errors.Errorf("node %q: %s nodes are created with their own constructor", name, kind)
	}
	if len(inputs) != kind.Arity() {
		return nil, errors.Errorf("node %q: %s takes %d inputs, got %d", name, kind, kind.Arity(), len(inputs))
	}
	for i, in := range inputs {
		if in == nil {
			return nil, errors.Errorf("node %q: %s input %d is nil", name, kind, i)
		}
	}
	switch kind {
	case Plus:
		return NewPlus(name, inputs[0], inputs[1]), nil
	case Minus:
		return NewMinus(name, inputs[0], inputs[1]), nil
	case Scale:
		return NewScale(name, inputs[0], inputs[1]), nil
	case Negate:
		return NewNegate(name, inputs[0]), nil
	case Times:
		return NewTimes(name, inputs[0], inputs[1]), nil
	case TransposeTimes:
		return NewTransposeTimes(name, inputs[0], inputs[1]), nil
	case ElementTimes:
		return NewElementTimes(name, inputs[0], inputs[1]), nil
	case RowElementTimes:
		return NewRowElementTimes(name, inputs[0], inputs[1]), nil
	case ColumnElementTimes:
		return NewColumnElementTimes(name, inputs[0], inputs[1]), nil
	case DiagTimes:
		return NewDiagTimes(name, inputs[0], inputs[1]), nil
	case SumElements:
		return NewSumElements(name, inputs[0]), nil
	case SumColumnElements:
		return NewSumColumnElements(name, inputs[0]), nil
	case Transpose:
		return NewTranspose(name, inputs[0]), nil
	case Diagonal:
		return NewDiagonal(name, inputs[0]), nil
	case CosDistance:
		return NewCosDistance(name, inputs[0], inputs[1]), nil
	case CosDistanceWithNegativeSamples:
		return NewCosDistanceWithNegativeSamples(name, inputs[0], inputs[1], inputs[2], inputs[3]), nil
	case KhatriRaoProduct:
		return NewKhatriRaoProduct(name, inputs[0], inputs[1]), nil
	case StrideTimes:
		return NewStrideTimes(name, inputs[0], inputs[1], inputs[2]), nil
	}
	return nil, errors.Errorf("node %q: no constructor for %s", name, kind)
}
