package pivot

import (
	"fmt"
	"strings"
)

// Kind is the reduction applied to the value column of each group.
type Kind uint8

const (
	Count Kind = iota
	Sum
	Average
	Min
	Max
)

func (k Kind) String() string {
	switch k {
	case Count:
		return "COUNT"
	case Sum:
		return "SUM"
	case Average:
		return "AVG"
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool { return k <= Max }

// needsInteger reports whether the kind does arithmetic on the values.
func (k Kind) needsInteger() bool { return k != Count }

// ParseKind accepts COUNT, SUM, AVG, AVERAGE, MIN and MAX in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COUNT":
		return Count, nil
	case "SUM":
		return Sum, nil
	case "AVG", "AVERAGE":
		return Average, nil
	case "MIN":
		return Min, nil
	case "MAX":
		return Max, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}
