package cluster

import (
	"context"
	"math"
	"reflect"
	"testing"
)

// twoBlobs returns points in two well-separated groups of four.
func twoBlobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1}, {10.1, 10.1},
	}
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	res, err := KMeans(context.Background(), twoBlobs(), 2, DefaultSeed, DefaultMaxIter)
	if err != nil {
		t.Fatalf("KMeans returned error: %v", err)
	}

	if !res.Converged {
		t.Error("expected convergence on trivially separable data")
	}

	first := res.Labels[0]
	for i := 1; i < 4; i++ {
		if res.Labels[i] != first {
			t.Errorf("point %d labeled %d, want %d (same blob)", i, res.Labels[i], first)
		}
	}
	second := res.Labels[4]
	if second == first {
		t.Error("both blobs landed in the same cluster")
	}
	for i := 5; i < 8; i++ {
		if res.Labels[i] != second {
			t.Errorf("point %d labeled %d, want %d (same blob)", i, res.Labels[i], second)
		}
	}

	if res.Inertia > 0.1 {
		t.Errorf("inertia = %.4f, want near zero for tight blobs", res.Inertia)
	}
}

func TestKMeansDeterministic(t *testing.T) {
	vectors := twoBlobs()

	a, err := KMeans(context.Background(), vectors, 3, 42, DefaultMaxIter)
	if err != nil {
		t.Fatalf("first run error: %v", err)
	}
	b, err := KMeans(context.Background(), vectors, 3, 42, DefaultMaxIter)
	if err != nil {
		t.Fatalf("second run error: %v", err)
	}

	if !reflect.DeepEqual(a.Labels, b.Labels) {
		t.Errorf("labels differ across runs with same seed:\n%v\n%v", a.Labels, b.Labels)
	}
	if !reflect.DeepEqual(a.Centroids, b.Centroids) {
		t.Error("centroids differ across runs with same seed")
	}
	if a.Inertia != b.Inertia {
		t.Errorf("inertia differs: %.6f vs %.6f", a.Inertia, b.Inertia)
	}
}

func TestKMeansRejectsInvalidK(t *testing.T) {
	if _, err := KMeans(context.Background(), twoBlobs(), 0, 42, 10); err == nil {
		t.Fatal("expected error for k=0")
	}
}

func TestKMeansEmptyInput(t *testing.T) {
	res, err := KMeans(context.Background(), nil, 4, 42, 10)
	if err != nil {
		t.Fatalf("KMeans returned error: %v", err)
	}
	if len(res.Labels) != 0 || !res.Converged {
		t.Errorf("empty input: labels=%d converged=%v, want empty and converged", len(res.Labels), res.Converged)
	}
}

func TestKMeansClampsKToRows(t *testing.T) {
	vectors := [][]float64{{1, 1}, {2, 2}}

	res, err := KMeans(context.Background(), vectors, 5, 42, 10)
	if err != nil {
		t.Fatalf("KMeans returned error: %v", err)
	}
	if res.K != 2 {
		t.Errorf("k = %d, want clamped to 2", res.K)
	}
	if len(res.Centroids) != 2 {
		t.Errorf("centroids = %d, want 2", len(res.Centroids))
	}
}

func TestKMeansDuplicatePoints(t *testing.T) {
	// All points identical: k-means++ falls back to uniform picks and the
	// result is a single effective centroid with zero inertia.
	vectors := [][]float64{{3, 3}, {3, 3}, {3, 3}, {3, 3}}

	res, err := KMeans(context.Background(), vectors, 2, 42, 10)
	if err != nil {
		t.Fatalf("KMeans returned error: %v", err)
	}
	if res.Inertia != 0 {
		t.Errorf("inertia = %.6f, want 0 for identical points", res.Inertia)
	}
}

func TestElbowSweep(t *testing.T) {
	points, err := Elbow(context.Background(), twoBlobs(), 1, 4, DefaultSeed, DefaultMaxIter)
	if err != nil {
		t.Fatalf("Elbow returned error: %v", err)
	}

	if len(points) != 4 {
		t.Fatalf("got %d points, want 4", len(points))
	}
	for i, p := range points {
		if p.K != i+1 {
			t.Errorf("point %d has k=%d, want %d", i, p.K, i+1)
		}
		if math.IsNaN(p.Inertia) || p.Inertia < 0 {
			t.Errorf("k=%d inertia = %.4f, want non-negative", p.K, p.Inertia)
		}
	}

	// More clusters never fit two tight blobs worse than one cluster.
	if points[1].Inertia > points[0].Inertia {
		t.Errorf("inertia rose from k=1 (%.4f) to k=2 (%.4f)", points[0].Inertia, points[1].Inertia)
	}
}

func TestElbowInvalidRange(t *testing.T) {
	if _, err := Elbow(context.Background(), twoBlobs(), 3, 2, 42, 10); err == nil {
		t.Fatal("expected error for kMax < kMin")
	}
	if _, err := Elbow(context.Background(), twoBlobs(), 0, 2, 42, 10); err == nil {
		t.Fatal("expected error for kMin < 1")
	}
}
