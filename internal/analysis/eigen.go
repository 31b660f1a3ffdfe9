package analysis

import "math"

// mat3 is a dense 3×3 matrix, row-major.
type mat3 [3][3]float64

const jacobiMaxSweeps = 50

// symmetricEigen3 diagonalises the symmetric matrix a with the cyclic Jacobi
// method.
//
// Returns the eigenvalues and a matrix whose columns are the matching unit
// eigenvectors. Only the symmetric part of a is used.
//
// # Algorithm
//
// Each sweep visits the off-diagonal pairs (0,1), (0,2), (1,2) and applies
// the plane rotation that zeroes a[p][q]:
//
//	θ = (a_qq − a_pp) / 2a_pq,  t = sgn(θ) / (|θ| + √(θ²+1))
//	c = 1/√(t²+1),  s = t·c
//
// The rotation is applied to the columns and rows of a and to the columns of
// the accumulated eigenvector matrix. Iteration stops when the off-diagonal
// mass is negligible against the diagonal, or after 50 sweeps.
func symmetricEigen3(a mat3) (vals [3]float64, vecs mat3) {
	for i := 0; i < 3; i++ {
		vecs[i][i] = 1
	}

	for sweep := 0; sweep < jacobiMaxSweeps; sweep++ {
		off := a[0][1]*a[0][1] + a[0][2]*a[0][2] + a[1][2]*a[1][2]
		diag := a[0][0]*a[0][0] + a[1][1]*a[1][1] + a[2][2]*a[2][2]
		if off == 0 || off <= 1e-32*diag {
			break
		}

		for p := 0; p < 2; p++ {
			for q := p + 1; q < 3; q++ {
				if a[p][q] == 0 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				var t float64
				if math.IsInf(theta*theta, 0) {
					t = 1 / (2 * theta)
				} else {
					t = 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
					if theta < 0 {
						t = -t
					}
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c
				jacobiRotate(&a, &vecs, p, q, c, s)
			}
		}
	}

	for i := 0; i < 3; i++ {
		vals[i] = a[i][i]
	}
	return vals, vecs
}

// jacobiRotate replaces a with JᵀAJ and v with VJ, where J is the identity
// except J[p][p] = J[q][q] = c, J[p][q] = s, J[q][p] = −s.
func jacobiRotate(a, v *mat3, p, q int, c, s float64) {
	for k := 0; k < 3; k++ {
		akp, akq := a[k][p], a[k][q]
		a[k][p] = c*akp - s*akq
		a[k][q] = s*akp + c*akq
	}
	for k := 0; k < 3; k++ {
		apk, aqk := a[p][k], a[q][k]
		a[p][k] = c*apk - s*aqk
		a[q][k] = s*apk + c*aqk
	}
	a[p][q], a[q][p] = 0, 0

	for k := 0; k < 3; k++ {
		vkp, vkq := v[k][p], v[k][q]
		v[k][p] = c*vkp - s*vkq
		v[k][q] = s*vkp + c*vkq
	}
}
