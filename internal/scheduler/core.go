package scheduler

import "math"

// maxWeightMatching returns, for every row, the matched column or -1.
// It runs the Hungarian algorithm with potentials on the negated weights.
func maxWeightMatching(weights [][]float64) []int {
	rows := len(weights)
	if rows == 0 {
		return nil
	}
	cols := len(weights[0])
	if cols == 0 {
		out := make([]int, rows)
		for i := range out {
			out[i] = -1
		}
		return out
	}

	if rows > cols {
		transposed := make([][]float64, cols)
		for j := range transposed {
			transposed[j] = make([]float64, rows)
			for i := 0; i < rows; i++ {
				transposed[j][i] = weights[i][j]
			}
		}
		colToRow := maxWeightMatching(transposed)
		out := make([]int, rows)
		for i := range out {
			out[i] = -1
		}
		for j, i := range colToRow {
			if i >= 0 {
				out[i] = j
			}
		}
		return out
	}

	// rows <= cols, 1-indexed arrays
	n, m := rows, cols
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1)
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := -weights[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
			if j0 == 0 {
				break
			}
		}
	}

	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	for j := 1; j <= m; j++ {
		if p[j] > 0 {
			out[p[j]-1] = j - 1
		}
	}
	return out
}
