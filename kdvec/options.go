package kdvec

import (
	"runtime"
	"strconv"
	"strings"
)

const (
	kindAuto  = "auto"
	kindKD    = "kd"
	kindBrute = "brute"

	// autoKDMinDocs is the smallest table for which index=auto picks the tree.
	autoKDMinDocs = 64
)

// tableOptions are parsed from CREATE VIRTUAL TABLE arguments, e.g.
// USING kd(doc_id, index=kd, dims=3, parallel=auto).
type tableOptions struct {
	kind         string
	dims         int
	parallel     int
	autoParallel bool
}

func (o tableOptions) buildParallelism() int {
	if o.autoParallel {
		return runtime.GOMAXPROCS(0)
	}
	return o.parallel
}

func (o tableOptions) resolveKind(docCount int) string {
	switch o.kind {
	case kindKD, kindBrute:
		return o.kind
	}
	if docCount >= autoKDMinDocs {
		return kindKD
	}
	return kindBrute
}

func parseOptions(args []string) tableOptions {
	opts := tableOptions{kind: kindKD}
	for _, raw := range args {
		a := strings.TrimSpace(raw)
		if a == "" {
			continue
		}
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		val := strings.ToLower(strings.Trim(strings.TrimSpace(parts[1]), `'"`))
		switch key {
		case "index":
			switch val {
			case kindKD, kindBrute, kindAuto:
				opts.kind = val
			}
		case "dims", "dim":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				opts.dims = n
			}
		case "parallel":
			switch val {
			case "", "0", "off":
				opts.parallel = 0
				opts.autoParallel = false
			case "auto":
				opts.autoParallel = true
				opts.parallel = 0
			default:
				if n, err := strconv.Atoi(val); err == nil {
					if n < 0 {
						n = 0
					}
					opts.parallel = n
					opts.autoParallel = false
				}
			}
		}
	}
	return opts
}

// parseColumns splits vtab args into the visible column name and options.
// args[0..2] are module, database and table names.
func parseColumns(args []string) (string, []string) {
	col := "doc_id"
	optStart := 3
	if len(args) > 3 {
		a := strings.TrimSpace(args[3])
		if a != "" && !strings.Contains(a, "=") {
			col = a
			optStart = 4
		}
	}
	if optStart > len(args) {
		return col, nil
	}
	return col, args[optStart:]
}
