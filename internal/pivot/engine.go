package pivot

import (
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/novacol/internal/table"
)

var (
	DefaultMinRowsPerWorker = 16384
)

type Options struct {
	// Workers is the number of scan partitions. <= 1 scans sequentially;
	// 0 means runtime.NumCPU().
	Workers int
	// MinRowsPerWorker keeps small tables on the sequential path.
	MinRowsPerWorker int
}

// Engine runs pivots over live tables. It holds no state between calls.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if opts.Workers == 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MinRowsPerWorker <= 0 {
		opts.MinRowsPerWorker = DefaultMinRowsPerWorker
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{opts: opts, logger: logger}
}

// Pivot validates the request, then scans one stable view of src. The
// result table is named "<src>_<kind>_by_<group>".
func (e *Engine) Pivot(src *table.Table, groupBy, value int, kind Kind) (*table.Table, error) {
	start := time.Now()

	var out *table.Table
	err := src.View(func(r table.Reader) error {
		p, err := validate(r.Schema(), groupBy, value, kind)
		if err != nil {
			return err
		}

		rows := r.RowCount()
		workers := e.workersFor(rows)

		var g *groups
		if workers <= 1 {
			g, err = scan(r, p, 0, rows)
		} else {
			g, err = scanParallel(r, p, rows, workers)
		}
		if err != nil {
			return err
		}

		name := src.Name + "_" + strings.ToLower(kind.String()) + "_by_" + p.groupName
		out, err = materialize(name, p, g)
		if err != nil {
			return err
		}

		e.logger.Debug("pivot done",
			"table", src.Name,
			"group_by", p.groupName,
			"value", p.valueName,
			"kind", kind.String(),
			"rows", rows,
			"groups", len(g.keys),
			"workers", workers,
			"elapsed", time.Since(start),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) workersFor(rows int) int {
	w := e.opts.Workers
	if w <= 1 {
		return 1
	}
	if limit := rows / e.opts.MinRowsPerWorker; w > limit {
		w = limit
	}
	if w < 1 {
		w = 1
	}
	return w
}

// scanParallel splits [0, rows) into contiguous ranges, scans each range in
// its own goroutine, then merges partials in range order. Merging in range
// order keeps keys in first-seen order, so the result equals a sequential
// scan.
func scanParallel(r table.Reader, p plan, rows, workers int) (*groups, error) {
	partials := make([]*groups, workers)
	chunk := rows / workers

	var eg errgroup.Group
	for i := 0; i < workers; i++ {
		from := i * chunk
		to := from + chunk
		if i == workers-1 {
			to = rows
		}
		eg.Go(func() error {
			g, err := scan(r, p, from, to)
			if err != nil {
				return err
			}
			partials[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := partials[0]
	for _, g := range partials[1:] {
		out.merge(g)
	}
	return out, nil
}
