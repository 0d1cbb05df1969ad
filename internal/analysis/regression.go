package analysis

import "github.com/viterin/vek"

// fitLine returns the least-squares slope and intercept of y over x. It
// returns zeros for fewer than two points or a degenerate x.
func fitLine(x, y []float64) (slope, intercept float64) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, 0
	}
	mx, my := vek.Mean(x), vek.Mean(y)

	xc := append([]float64(nil), x...)
	yc := append([]float64(nil), y...)
	vek.SubNumber_Inplace(xc, mx)
	vek.SubNumber_Inplace(yc, my)

	sxx := vek.Dot(xc, xc)
	if sxx == 0 {
		return 0, my
	}
	slope = vek.Dot(xc, yc) / sxx
	return slope, my - slope*mx
}
