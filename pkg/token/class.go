package token

// EquivalenceClass is a closed enumeration of multi-token constructs
// recognised during tokenization. Each class has a stable id, equal to the
// id of the synthetic dictionary word that represents it (4.A contract 2).
type EquivalenceClass uint32

const (
	ClassDate EquivalenceClass = iota
	ClassPercent
	ClassInteger
	ClassDecimal
	classCount
)

// ClassCount is the number of equivalence classes in the closed table.
func ClassCount() int { return int(classCount) }

// Name returns a human-readable name, for debug traces only.
func (c EquivalenceClass) Name() string {
	switch c {
	case ClassDate:
		return "date"
	case ClassPercent:
		return "percent"
	case ClassInteger:
		return "integer"
	case ClassDecimal:
		return "decimal"
	default:
		return "unknown-class"
	}
}
