package bridge

const latencySamples = 100

// latencyRing keeps the most recent round-trip samples in milliseconds.
type latencyRing struct {
	buf  [latencySamples]float64
	n    int
	next int
	last float64
}

func (r *latencyRing) add(ms float64) {
	r.buf[r.next] = ms
	r.next = (r.next + 1) % latencySamples
	if r.n < latencySamples {
		r.n++
	}
	r.last = ms
}

func (r *latencyRing) avg() float64 {
	if r.n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r.n; i++ {
		sum += r.buf[i]
	}
	return sum / float64(r.n)
}
