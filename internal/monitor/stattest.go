package monitor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Test names reported in ColumnDrift. KS and chi-square score with a
// p-value; Wasserstein and Jensen-Shannon score with a distance.
const (
	TestKS            = "ks"
	TestChiSquare     = "chisquare"
	TestWasserstein   = "wasserstein"
	TestJensenShannon = "jensenshannon"
)

// isDistance reports whether test scores with a distance, where larger
// means more drift.
func isDistance(test string) bool {
	return test == TestWasserstein || test == TestJensenShannon
}

// ksTest runs the two-sample Kolmogorov-Smirnov test and returns the D
// statistic with its asymptotic p-value. Both samples must be non-empty.
func ksTest(ref, cur []float64) (d, p float64) {
	x := append([]float64(nil), ref...)
	y := append([]float64(nil), cur...)
	sort.Float64s(x)
	sort.Float64s(y)
	d = stat.KolmogorovSmirnov(x, nil, y, nil)

	n, m := float64(len(x)), float64(len(y))
	en := math.Sqrt(n * m / (n + m))
	return d, kolmogorovQ((en + 0.12 + 0.11/en) * d)
}

// kolmogorovQ is the complementary Kolmogorov distribution
// Q(λ) = 2 Σ (-1)^(k-1) exp(-2k²λ²).
func kolmogorovQ(lambda float64) float64 {
	const (
		eps1 = 1e-6
		eps2 = 1e-16
	)
	a2 := -2 * lambda * lambda
	sign, sum, prev := 2.0, 0.0, 0.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(a2*float64(k*k))
		sum += term
		if math.Abs(term) <= eps1*prev || math.Abs(term) <= eps2*sum {
			return math.Min(math.Max(sum, 0), 1)
		}
		sign = -sign
		prev = math.Abs(term)
	}
	// no convergence: λ is tiny and the samples are indistinguishable
	return 1
}

// chiSquareTest compares how often an indicator is set in two samples with a
// 2xK test of homogeneity. Categories seen in neither sample are left out.
func chiSquareTest(ref, cur []float64) (statistic, p float64) {
	var counts [2][2]float64
	for _, v := range ref {
		counts[0][bin(v)]++
	}
	for _, v := range cur {
		counts[1][bin(v)]++
	}
	rowTotal := [2]float64{float64(len(ref)), float64(len(cur))}
	total := rowTotal[0] + rowTotal[1]

	var obs, exp []float64
	categories := 0
	for j := 0; j < 2; j++ {
		colTotal := counts[0][j] + counts[1][j]
		if colTotal == 0 {
			continue
		}
		categories++
		for i := 0; i < 2; i++ {
			obs = append(obs, counts[i][j])
			exp = append(exp, rowTotal[i]*colTotal/total)
		}
	}
	if categories < 2 {
		return 0, 1
	}
	statistic = stat.ChiSquare(obs, exp)
	return statistic, distuv.ChiSquared{K: float64(categories - 1)}.Survival(statistic)
}

func bin(v float64) int {
	if v != 0 {
		return 1
	}
	return 0
}

// wassersteinTest returns the first Wasserstein distance between the two
// samples divided by the population standard deviation of ref (floored at
// 0.001), so the score is in units of the reference spread.
func wassersteinTest(ref, cur []float64) (distance, normed float64) {
	x := append([]float64(nil), ref...)
	y := append([]float64(nil), cur...)
	sort.Float64s(x)
	sort.Float64s(y)

	// Integrate |F(t) - G(t)| over the merged support.
	n, m := float64(len(x)), float64(len(y))
	var i, j int
	prev := math.Min(x[0], y[0])
	for i < len(x) || j < len(y) {
		var next float64
		switch {
		case j == len(y) || (i < len(x) && x[i] <= y[j]):
			next = x[i]
		default:
			next = y[j]
		}
		distance += math.Abs(float64(i)/n-float64(j)/m) * (next - prev)
		for i < len(x) && x[i] == next {
			i++
		}
		for j < len(y) && y[j] == next {
			j++
		}
		prev = next
	}

	_, std := stat.PopMeanStdDev(ref, nil)
	return distance, distance / math.Max(std, 0.001)
}

// jensenShannonTest returns the Jensen-Shannon distance (natural log) between
// the set/unset shares of an indicator in two samples. Empty bins get a share
// of 0.0001 so the distance stays finite.
func jensenShannonTest(ref, cur []float64) (divergence, distance float64) {
	p, q := shares(ref), shares(cur)
	divergence = stat.JensenShannon(p, q)
	return divergence, math.Sqrt(math.Max(divergence, 0))
}

func shares(xs []float64) []float64 {
	var counts [2]float64
	for _, v := range xs {
		counts[bin(v)]++
	}
	out := make([]float64, 2)
	var total float64
	for k, c := range counts {
		out[k] = math.Max(c/float64(len(xs)), 0.0001)
		total += out[k]
	}
	floats.Scale(1/total, out)
	return out
}
