package kdtree

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gonumkd "gonum.org/v1/gonum/spatial/kdtree"
)

func bruteForce[T Number](query Point[T], points []Point[T]) (Point[T], float64) {
	best, bestDist := points[0], Distance(query, points[0])
	for _, p := range points[1:] {
		if d := Distance(query, p); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist
}

func TestNearest_Textbook(t *testing.T) {
	tree, err := Build(2, textbookPoints())
	require.NoError(t, err)

	testCases := []struct {
		description string
		query       Point[int]
		expectPoint Point[int]
		expectDist  float64
	}{
		{description: "right of root", query: Point[int]{9, 2}, expectPoint: Point[int]{8, 1}, expectDist: math.Sqrt(2)},
		{description: "left of root", query: Point[int]{4, 4}, expectPoint: Point[int]{5, 4}, expectDist: 1},
		{description: "exact match", query: Point[int]{4, 7}, expectPoint: Point[int]{4, 7}, expectDist: 0},
		{description: "tie on root axis", query: Point[int]{7, 3}, expectPoint: Point[int]{7, 2}, expectDist: 1},
	}
	for _, testCase := range testCases {
		actual, err := FindNearest(testCase.query, tree)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectPoint, actual.Point, testCase.description)
		assert.Equal(t, testCase.expectDist, actual.Distance, testCase.description)
	}
}

func TestNearest_Empty(t *testing.T) {
	tree, err := Build[float64](2, nil)
	require.NoError(t, err)
	neighbor, err := tree.Nearest(Point[float64]{1, 1})
	assert.ErrorIs(t, err, ErrNoNeighbor)
	assert.Nil(t, neighbor.Point)
	assert.Equal(t, 0.0, neighbor.Distance)

	var nilTree *Tree[float64]
	_, err = nilTree.Nearest(Point[float64]{1, 1})
	assert.ErrorIs(t, err, ErrNoNeighbor)
}

func TestNearest_DimensionMismatch(t *testing.T) {
	tree, err := Build(2, textbookPoints())
	require.NoError(t, err)
	_, err = tree.Nearest(Point[int]{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = tree.Nearest(Point[int]{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNearest_NonFiniteQuery(t *testing.T) {
	tree, err := Build(2, []Point[float64]{{2, 2}, {5, 4}})
	require.NoError(t, err)
	for _, query := range []Point[float64]{{math.NaN(), 1}, {1, math.Inf(1)}} {
		got, err := tree.Nearest(query)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
		assert.Nil(t, got.Point)
	}
}

func TestNearest_SingleNode(t *testing.T) {
	only := Point[float64]{3, -1, 2}
	tree, err := Build(3, []Point[float64]{only})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 20; i++ {
		query := randomPoint(rng, 3, -10, 10)
		actual, err := tree.Nearest(query)
		require.NoError(t, err)
		assert.Equal(t, only, actual.Point)
		assert.Equal(t, Distance(query, only), actual.Distance)
	}
}

func TestNearest_DuplicatePoints(t *testing.T) {
	points := []Point[int]{{1, 1}, {5, 5}, {1, 1}, {3, 9}, {5, 5}}
	tree, err := Build(2, points)
	require.NoError(t, err)
	for _, p := range points {
		actual, err := tree.Nearest(p)
		require.NoError(t, err)
		assert.Equal(t, p, actual.Point)
		assert.Equal(t, 0.0, actual.Distance)
	}
}

func TestNearest_ResultIsDetached(t *testing.T) {
	tree, err := Build(2, textbookPoints())
	require.NoError(t, err)
	first, err := tree.Nearest(Point[int]{9, 2})
	require.NoError(t, err)
	first.Point[0] = -1
	second, err := tree.Nearest(Point[int]{9, 2})
	require.NoError(t, err)
	assert.Equal(t, Point[int]{8, 1}, second.Point)
}

func TestNearest_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for k := 1; k <= 5; k++ {
		points := randomPoints(rng, 2000, k, 0, 2560)
		tree, err := Build(k, points)
		require.NoError(t, err)
		for i := 0; i < 200; i++ {
			query := randomPoint(rng, k, -100, 2660)
			actual, err := tree.Nearest(query)
			require.NoError(t, err)
			_, expectDist := bruteForce(query, points)
			assert.Equal(t, expectDist, actual.Distance, "k=%d query=%v", k, query)
			assert.Equal(t, actual.Distance, Distance(query, actual.Point))
		}
	}
}

func TestNearest_IntegerCoordinates(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	const k = 3
	points := make([]Point[int], 3000)
	for i := range points {
		points[i] = Point[int]{rng.Intn(2561), rng.Intn(2561), rng.Intn(2561)}
	}
	tree, err := Build(k, points, WithBuildParallelism(4))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		query := Point[int]{rng.Intn(2561), rng.Intn(2561), rng.Intn(2561)}
		actual, err := tree.Nearest(query)
		require.NoError(t, err)
		_, expectDist := bruteForce(query, points)
		assert.Equal(t, expectDist, actual.Distance)
	}
}

func TestNearest_AgreesWithGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	const k = 4
	points := randomPoints(rng, 1500, k, -1, 1)
	oraclePoints := make(gonumkd.Points, len(points))
	for i, p := range points {
		oraclePoints[i] = gonumkd.Point(p.Clone())
	}
	oracle := gonumkd.New(oraclePoints, false)
	tree, err := Build(k, points)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		query := randomPoint(rng, k, -1.2, 1.2)
		_, oracleSq := oracle.Nearest(gonumkd.Point(query.Clone()))
		actual, err := tree.Nearest(query)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt(oracleSq), actual.Distance, 1e-12)
	}
}

func TestNearest_Concurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	points := randomPoints(rng, 4000, 3, 0, 100)
	queries := randomPoints(rng, 400, 3, 0, 100)
	expect := make([]float64, len(queries))
	for i, q := range queries {
		_, expect[i] = bruteForce(q, points)
	}
	tree, err := Build(3, points)
	require.NoError(t, err)

	actual := make([]float64, len(queries))
	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i := range queries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			neighbor, err := tree.Nearest(queries[i])
			actual[i], errs[i] = neighbor.Distance, err
		}(i)
	}
	wg.Wait()
	for i := range queries {
		require.NoError(t, errs[i])
		assert.Equal(t, expect[i], actual[i])
	}
}
