package domain

import "fmt"

// Verdict is the tri-state result of evaluating one WorkItem.
type Verdict int

const (
	// Inconclusive means the item's computation does not cover the target.
	Inconclusive Verdict = iota
	// True means the target is even.
	True
	// False means the target is odd.
	False
)

// Conclusive reports whether v is a definite answer.
func (v Verdict) Conclusive() bool {
	return v == True || v == False
}

// Parity renders a conclusive verdict as "even" or "odd".
func (v Verdict) Parity() string {
	switch v {
	case True:
		return "even"
	case False:
		return "odd"
	default:
		return "unknown"
	}
}

func (v Verdict) String() string {
	switch v {
	case Inconclusive:
		return "inconclusive"
	case True:
		return "true"
	case False:
		return "false"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// ParseVerdict is the inverse of Verdict.String.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "inconclusive", "":
		return Inconclusive, nil
	case "true":
		return True, nil
	case "false":
		return False, nil
	}
	return Inconclusive, fmt.Errorf("unknown verdict %q", s)
}
