// Package pivot groups a table by a text column and reduces another column
// per group into a freshly built two-column table.
package pivot

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/tuannm99/novacol/internal/record"
	"github.com/tuannm99/novacol/internal/table"
)

var (
	ErrUnsupportedGroupByType     = errors.New("pivot: group-by column must be TEXT")
	ErrUnsupportedAggregationType = errors.New("pivot: aggregation needs an INT64 value column")
	ErrInvalidColumn              = errors.New("pivot: invalid column reference")
	ErrUnknownKind                = errors.New("pivot: unknown aggregation kind")
	ErrOverflow                   = errors.New("pivot: int64 overflow")
)

// plan is a validated pivot request.
type plan struct {
	groupBy   int
	value     int
	kind      Kind
	groupName string
	valueName string
}

// validate checks every argument against the source schema before any row
// is read.
func validate(schema record.Schema, groupBy, value int, kind Kind) (plan, error) {
	n := schema.NumCols()
	if groupBy < 0 || groupBy >= n {
		return plan{}, fmt.Errorf("%w: group-by column %d of %d", ErrInvalidColumn, groupBy, n)
	}
	if value < 0 || value >= n {
		return plan{}, fmt.Errorf("%w: value column %d of %d", ErrInvalidColumn, value, n)
	}
	if !kind.valid() {
		return plan{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	g, v := schema.Cols[groupBy], schema.Cols[value]
	if g.Type != record.ColText {
		return plan{}, fmt.Errorf("%w: column %q is %s", ErrUnsupportedGroupByType, g.Name, g.Type)
	}
	if kind.needsInteger() && !v.Type.IsInteger() {
		return plan{}, fmt.Errorf("%w: %s on column %q of type %s",
			ErrUnsupportedAggregationType, kind, v.Name, v.Type)
	}

	return plan{
		groupBy:   groupBy,
		value:     value,
		kind:      kind,
		groupName: g.Name,
		valueName: v.Name,
	}, nil
}

// Pivot runs a single sequential pass over src. The result has the group
// key in column 0 and the aggregate in column 1, one row per distinct key in
// first-seen order.
func Pivot(src table.Reader, groupBy, value int, kind Kind) (*table.Table, error) {
	p, err := validate(src.Schema(), groupBy, value, kind)
	if err != nil {
		return nil, err
	}
	g, err := scan(src, p, 0, src.RowCount())
	if err != nil {
		return nil, err
	}
	return materialize("pivot", p, g)
}

// state is the running aggregate of one group.
type state struct {
	count int64
	sum   int128
	min   int64
	max   int64
}

// int128 is a two's complement accumulator. Sums are exact until the group
// is materialized, so overflow depends only on the final total and never on
// the order or partitioning of the scan.
type int128 struct {
	hi int64
	lo uint64
}

func (a int128) add(b int128) int128 {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	return int128{hi: a.hi + b.hi + int64(carry), lo: lo}
}

func (a int128) addInt64(v int64) int128 {
	return a.add(int128{hi: v >> 63, lo: uint64(v)})
}

// narrow reports a's value and whether it fits in an int64.
func (a int128) narrow() (int64, bool) {
	v := int64(a.lo)
	return v, a.hi == v>>63
}

// groups is an insertion-ordered map from group key to state.
type groups struct {
	index  map[string]int
	keys   []string
	states []state
}

func newGroups() *groups {
	return &groups{index: make(map[string]int)}
}

func (g *groups) slot(key string) *state {
	i, ok := g.index[key]
	if !ok {
		i = len(g.keys)
		g.index[key] = i
		g.keys = append(g.keys, key)
		g.states = append(g.states, state{})
	}
	return &g.states[i]
}

// scan folds rows [from, to) of src into a fresh group set.
func scan(src table.Reader, p plan, from, to int) (*groups, error) {
	g := newGroups()
	for row := from; row < to; row++ {
		key, err := src.GetString(p.groupBy, row)
		if err != nil {
			return nil, err
		}
		st := g.slot(key)

		if p.kind == Count {
			st.count++
			continue
		}

		v, err := src.GetInt64(p.value, row)
		if err != nil {
			return nil, err
		}
		st.add(p.kind, v)
	}
	return g, nil
}

func (s *state) add(k Kind, v int64) {
	switch k {
	case Min, Max:
		if s.count == 0 || v < s.min {
			s.min = v
		}
		if s.count == 0 || v > s.max {
			s.max = v
		}
	case Sum, Average:
		s.sum = s.sum.addInt64(v)
	}
	s.count++
}

// merge folds o into s. Both states must come from the same kind of scan.
func (s *state) merge(o state) {
	if o.count == 0 {
		return
	}
	if s.count == 0 {
		*s = o
		return
	}
	if o.min < s.min {
		s.min = o.min
	}
	if o.max > s.max {
		s.max = o.max
	}
	s.count += o.count
	s.sum = s.sum.add(o.sum)
}

// merge appends the groups of o into g; keys new to g keep o's order.
func (g *groups) merge(o *groups) {
	for i, key := range o.keys {
		g.slot(key).merge(o.states[i])
	}
}

// resultSchema names column 0 after the group-by column and column 1 after
// the aggregate, e.g. (sex TEXT, count INT64) or (sex TEXT, avg_age FLOAT64).
func resultSchema(p plan) record.Schema {
	aggName := "count"
	if p.kind != Count {
		aggName = strings.ToLower(p.kind.String()) + "_" + p.valueName
	}
	if aggName == p.groupName {
		aggName += "_agg"
	}

	aggType := record.ColInt64
	if p.kind == Average {
		aggType = record.ColFloat64
	}

	return record.Schema{Cols: []record.Column{
		{Name: p.groupName, Type: record.ColText},
		{Name: aggName, Type: aggType},
	}}
}

func materialize(name string, p plan, g *groups) (*table.Table, error) {
	out, err := table.NewWithCapacity(name, resultSchema(p), len(g.keys))
	if err != nil {
		return nil, err
	}
	for i, key := range g.keys {
		st := g.states[i]

		var v any
		switch p.kind {
		case Count:
			v = st.count
		case Sum, Average:
			sum, ok := st.sum.narrow()
			if !ok {
				return nil, fmt.Errorf("%w: group %q", ErrOverflow, key)
			}
			v = sum
			if p.kind == Average {
				v = float64(sum) / float64(st.count)
			}
		case Min:
			v = st.min
		case Max:
			v = st.max
		}
		if _, err := out.Insert([]any{key, v}); err != nil {
			return nil, err
		}
	}
	return out, nil
}
