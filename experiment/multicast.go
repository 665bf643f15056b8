package experiment

import "math"

// ExpectedFirstMulticast computes the expected number of reminder periods
// before the first multicast fires anywhere in a system of n nodes, given
// the maximum number of postponements and the exponent a of the per-node
// probability (wait/maxWait)^a.
func ExpectedFirstMulticast(n int, maxWait int, a float64) float64 {
	if n <= 0 || maxWait <= 0 {
		return 0
	}

	expected := 0.0
	for t := 0.0; t <= float64(maxWait); t++ {
		m1 := t / float64(maxWait)
		e1 := t * (1 - math.Pow(1-math.Pow(m1, a), float64(n)))

		e2 := 1.0
		for w := 0.0; w <= t-1; w++ {
			m2 := w / float64(maxWait)
			e2 = e2 * (1 - (1 - math.Pow(1-math.Pow(m2, a), float64(n))))
		}

		expected += e1 * e2
	}
	return expected
}

// FindMulticastParam searches the exponent a whose expected time of first
// multicast is closest to the desired one, scanning a in small steps up
// to a fixed bound to guarantee termination.
func FindMulticastParam(n int, maxWait int, expectedFirstMulticast float64) float64 {
	const (
		aFirst = 1.0
		aLast  = 30.0
		aStep  = 0.25
	)

	aClosest := 0.0
	diff := math.Inf(1)

	for a := aFirst; a <= aLast; a += aStep {
		e := ExpectedFirstMulticast(n, maxWait, a)

		// as long as we do not surpass the required time, keep the last a
		if e <= expectedFirstMulticast {
			aClosest = a
			diff = math.Abs(expectedFirstMulticast - e)
			continue
		}

		// we surpassed it: return whichever side is closer
		if diff > math.Abs(expectedFirstMulticast-e) {
			return a
		}
		return aClosest
	}

	return aClosest
}
