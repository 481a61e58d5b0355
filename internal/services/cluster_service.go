package services

import (
	"context"
	"math"

	"learnpath/internal/config"
	"learnpath/internal/models"
	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ClusterServiceInterface defines the behavior clustering operations
type ClusterServiceInterface interface {
	ClusterStudents(ctx context.Context, vectors []models.FeatureVector) ([]models.ClusterAssignment, []models.ClusterSummary, error)
}

// ClusterService groups (student, topic) behavior vectors with k-means.
// Everything about the run is deterministic: seeding is farthest-point from
// the first vector, ties break on input order, and iteration stops when
// assignments no longer change.
type ClusterService struct {
	cfg    *config.AnalyticsConfig
	logger *observability.Logger
}

// NewClusterServiceWithLogger creates a new cluster service
func NewClusterServiceWithLogger(cfg *config.AnalyticsConfig, logger *observability.Logger) *ClusterService {
	return &ClusterService{cfg: cfg, logger: logger}
}

// ClusterStudents partitions the behavior vectors into at most
// cfg.ClusterCount clusters and returns the per-vector assignments together
// with a summary of each cluster. Cluster ids are run-local labels without
// semantic meaning. With fewer vectors than clusters every vector gets its
// own cluster; an empty input is an insufficient-data error.
func (s *ClusterService) ClusterStudents(ctx context.Context, vectors []models.FeatureVector) (result0 []models.ClusterAssignment, result1 []models.ClusterSummary, err error) {
	ctx, span := observability.TraceAnalyticsFunction(ctx, "cluster_students",
		observability.AttributeRecordCount(len(vectors)),
	)
	defer observability.FinishSpan(span, &err)

	if len(vectors) == 0 {
		return nil, nil, contextutils.WrapError(contextutils.ErrInsufficientData, "no feature vectors to cluster")
	}

	k := s.cfg.ClusterCount
	if k < 1 {
		k = 1
	}
	if k > len(vectors) {
		k = len(vectors)
	}
	span.SetAttributes(attribute.Int("cluster.k", k))

	points := make([][]float64, len(vectors))
	for i := range vectors {
		points[i] = vectors[i].BehaviorVector()
	}
	scaled := standardize(points)

	assignments := kmeans(scaled, k)

	out := make([]models.ClusterAssignment, len(vectors))
	sums := make([][]float64, k)
	counts := make([]int, k)
	dims := len(points[0])
	for c := 0; c < k; c++ {
		sums[c] = make([]float64, dims)
	}
	for i, c := range assignments {
		out[i] = models.ClusterAssignment{
			StudentID: vectors[i].StudentID,
			Topic:     vectors[i].Topic,
			Cluster:   c,
		}
		counts[c]++
		for d, v := range points[i] {
			sums[c][d] += v
		}
	}

	summaries := make([]models.ClusterSummary, k)
	for c := 0; c < k; c++ {
		centroid := make([]float64, dims)
		if counts[c] > 0 {
			for d := range centroid {
				centroid[d] = sums[c][d] / float64(counts[c])
			}
		}
		summaries[c] = models.ClusterSummary{Cluster: c, Size: counts[c], Centroid: centroid}
	}

	s.logger.Debug(ctx, "Clustered behavior vectors", map[string]interface{}{
		"vectors":  len(vectors),
		"clusters": k,
	})

	return out, summaries, nil
}

// standardize z-scores each dimension across the points. A dimension with no
// variance maps to zero.
func standardize(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return nil
	}
	dims := len(points[0])
	means := make([]float64, dims)
	stds := make([]float64, dims)
	for d := 0; d < dims; d++ {
		col := make([]float64, len(points))
		for i := range points {
			col[i] = points[i][d]
		}
		means[d] = mean(col)
		stds[d] = populationStd(col)
	}

	out := make([][]float64, len(points))
	for i := range points {
		row := make([]float64, dims)
		for d := 0; d < dims; d++ {
			if stds[d] > 0 {
				row[d] = (points[i][d] - means[d]) / stds[d]
			}
		}
		out[i] = row
	}
	return out
}

// kmeans runs Lloyd's algorithm with deterministic farthest-point seeding.
func kmeans(points [][]float64, k int) []int {
	centroids := seedCentroids(points, k)
	assignments := make([]int, len(points))
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < config.KMeansMaxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(p, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		dims := len(points[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := 0; c < k; c++ {
			sums[c] = make([]float64, dims)
		}
		for i, c := range assignments {
			counts[c]++
			for d, v := range points[i] {
				sums[c][d] += v
			}
		}
		for c := 0; c < k; c++ {
			// An emptied cluster keeps its previous centroid.
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < dims; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	return assignments
}

// seedCentroids picks the first point, then repeatedly the point farthest
// from its nearest already-chosen centroid. Ties resolve to the lowest index.
func seedCentroids(points [][]float64, k int) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneVector(points[0]))

	for len(centroids) < k {
		bestIdx := -1
		bestDist := -1.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if dd := squaredDistance(p, c); dd < d {
					d = dd
				}
			}
			if d > bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		centroids = append(centroids, cloneVector(points[bestIdx]))
	}

	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := squaredDistance(p, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := squaredDistance(p, centroids[c]); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
