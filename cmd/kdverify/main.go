// Command kdverify builds a k-d tree over random integer points and checks
// every nearest-neighbor answer against a linear scan.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/viant/sqlite-kd/kdtree"
)

type config struct {
	dim      int
	size     int
	queries  int
	seed     int64
	min, max int
	parallel int
}

type report struct {
	built      time.Duration
	treeQuery  time.Duration
	scanQuery  time.Duration
	height     int
	mismatches int
}

func main() {
	cfg := config{}
	flag.IntVar(&cfg.dim, "k", 3, "Number of dimensions")
	flag.IntVar(&cfg.size, "n", 10000, "Number of points in the tree")
	flag.IntVar(&cfg.queries, "queries", 50, "Number of random queries to verify")
	flag.Int64Var(&cfg.seed, "seed", 0, "Random seed (0 uses the current time)")
	flag.IntVar(&cfg.min, "min", 0, "Lower coordinate bound (inclusive)")
	flag.IntVar(&cfg.max, "max", 2560, "Upper coordinate bound (inclusive)")
	flag.IntVar(&cfg.parallel, "parallel", 0, "Build goroutines (0 or 1 builds sequentially)")
	flag.Parse()

	if cfg.seed == 0 {
		cfg.seed = time.Now().UnixNano()
	}
	log.Printf("kdverify: seed=%d k=%d n=%s queries=%s", cfg.seed, cfg.dim, humanize.Comma(int64(cfg.size)), humanize.Comma(int64(cfg.queries)))

	rep, err := run(cfg, func(q, tree, scan kdtree.Neighbor[int]) {
		log.Printf("mismatch: query=%v tree=%v (%.6f) scan=%v (%.6f)", q.Point, tree.Point, tree.Distance, scan.Point, scan.Distance)
	})
	if err != nil {
		log.Fatalf("kdverify: %v", err)
	}
	fmt.Printf("built %s points in %s (height %d)\n", humanize.Comma(int64(cfg.size)), rep.built, rep.height)
	fmt.Printf("tree queries: %s, linear scans: %s\n", rep.treeQuery, rep.scanQuery)
	if rep.mismatches > 0 {
		fmt.Printf("%s of %s queries disagreed\n", humanize.Comma(int64(rep.mismatches)), humanize.Comma(int64(cfg.queries)))
		os.Exit(1)
	}
	fmt.Printf("all %s queries matched\n", humanize.Comma(int64(cfg.queries)))
}

// run verifies cfg.queries random queries. onMismatch receives the query
// (as a zero-distance neighbor) and both answers whenever the distances differ.
func run(cfg config, onMismatch func(query, tree, scan kdtree.Neighbor[int])) (*report, error) {
	if cfg.dim < 1 {
		return nil, fmt.Errorf("%w: -k %d", kdtree.ErrInvalidDimension, cfg.dim)
	}
	if cfg.size < 0 || cfg.queries < 0 {
		return nil, fmt.Errorf("invalid counts -n %d -queries %d", cfg.size, cfg.queries)
	}
	if cfg.max < cfg.min {
		return nil, fmt.Errorf("invalid bounds [%d, %d]", cfg.min, cfg.max)
	}
	rnd := rand.New(rand.NewSource(cfg.seed))
	points := make([]kdtree.Point[int], cfg.size)
	for i := range points {
		points[i] = randomPoint(rnd, cfg)
	}

	rep := &report{}
	start := time.Now()
	tree, err := kdtree.Build(cfg.dim, points, kdtree.WithBuildParallelism(cfg.parallel))
	if err != nil {
		return nil, err
	}
	rep.built = time.Since(start)
	rep.height = tree.Height()

	for i := 0; i < cfg.queries; i++ {
		q := randomPoint(rnd, cfg)
		start = time.Now()
		got, err := kdtree.FindNearest(q, tree)
		rep.treeQuery += time.Since(start)
		if err != nil {
			return nil, err
		}
		start = time.Now()
		want, ok := linearClosest(q, points)
		rep.scanQuery += time.Since(start)
		if !ok || got.Distance != want.Distance {
			rep.mismatches++
			if onMismatch != nil {
				onMismatch(kdtree.Neighbor[int]{Point: q}, got, want)
			}
		}
	}
	return rep, nil
}

func randomPoint(rnd *rand.Rand, cfg config) kdtree.Point[int] {
	p := make(kdtree.Point[int], cfg.dim)
	for i := range p {
		p[i] = cfg.min + rnd.Intn(cfg.max-cfg.min+1)
	}
	return p
}

func linearClosest(q kdtree.Point[int], points []kdtree.Point[int]) (kdtree.Neighbor[int], bool) {
	if len(points) == 0 {
		return kdtree.Neighbor[int]{}, false
	}
	best := kdtree.Neighbor[int]{Point: points[0], Distance: kdtree.Distance(q, points[0])}
	for _, p := range points[1:] {
		if d := kdtree.Distance(q, p); d < best.Distance {
			best = kdtree.Neighbor[int]{Point: p, Distance: d}
		}
	}
	return best, true
}
