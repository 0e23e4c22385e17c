package homography

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

var (
	// ErrInsufficientData is returned when fewer than MinPairs pairs exist.
	ErrInsufficientData = errors.New("insufficient correspondences")
	// ErrSolveFailed is returned when the linear system cannot be factorized.
	ErrSolveFailed = errors.New("homography factorization failed")
)

// Solve recovers the transform mapping sensor points onto target points.
//
// Each pair (u,v) -> (x,y) contributes two rows of the direct linear transform
// (Criminisi, Reid and Zisserman, "A Plane Measuring Device"):
//
//	[u v 1 0 0 0 -u·x -v·x] θ = x
//	[0 0 0 u v 1 -u·y -v·y] θ = y
//
// θ is the minimum-norm least-squares solution, exact for four pairs in general
// position. Collinear or repeated points are not rejected; the result for them
// is whatever the rank-deficient solve produces.
func Solve(s *Store) (geometry.Transform, error) {
	n := s.Len()
	if n < MinPairs {
		return geometry.Transform{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, n, MinPairs)
	}

	a := mat.NewDense(2*n, 8, nil)
	b := mat.NewVecDense(2*n, nil)
	for i, c := range s.pairs {
		u, v := c.Sensor.X, c.Sensor.Y
		x, y := c.Target.X, c.Target.Y
		a.SetRow(2*i, []float64{u, v, 1, 0, 0, 0, -u * x, -v * x})
		a.SetRow(2*i+1, []float64{0, 0, 0, u, v, 1, -u * y, -v * y})
		b.SetVec(2*i, x)
		b.SetVec(2*i+1, y)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return geometry.Transform{}, ErrSolveFailed
	}

	// Same singular value cutoff as numpy.linalg.lstsq.
	eps := math.Nextafter(1, 2) - 1
	rank := svd.Rank(eps * float64(max(2*n, 8)))

	theta := mat.NewVecDense(8, nil)
	if rank > 0 {
		svd.SolveVecTo(theta, b, rank)
	}

	var v [9]float64
	for i := range 8 {
		v[i] = theta.AtVec(i)
	}
	v[8] = 1
	return geometry.FromValues(v), nil
}

// ReprojectionError returns the RMS distance between each target point and
// its sensor point mapped through t.
func ReprojectionError(t geometry.Transform, pairs []Correspondence) (float64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}
	var sum float64
	for _, c := range pairs {
		p, err := t.Apply(c.Sensor)
		if err != nil {
			return 0, fmt.Errorf("mapping %v: %w", c.Sensor, err)
		}
		d := p.Distance(c.Target)
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(pairs))), nil
}
