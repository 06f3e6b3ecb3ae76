package trace

import (
	"container/heap"

	"github.com/tcassar-diss/systrace/source"
)

// FlushHorizon is how far behind the newest sample queued samples are released.
const FlushHorizon = uint64(1_000_000_000)

type queued struct {
	sample *source.Sample
	seq    uint64
}

type sampleHeap []queued

func (h sampleHeap) Len() int { return len(h) }

func (h sampleHeap) Less(i, j int) bool {
	if h[i].sample.Time != h[j].sample.Time {
		return h[i].sample.Time < h[j].sample.Time
	}

	return h[i].seq < h[j].seq
}

func (h sampleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *sampleHeap) Push(x any) { *h = append(*h, x.(queued)) }

func (h *sampleHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

// Queue releases samples in time order once they are older than the newest sample by
// more than FlushHorizon. Samples that arrive behind an earlier flush are counted and
// still delivered.
type Queue struct {
	h         sampleHeap
	seq       uint64
	last      uint64
	lastFlush uint64
	flushed   bool
	unordered uint64
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push queues s and delivers whatever fell behind the horizon.
func (q *Queue) Push(s *source.Sample, deliver func(*source.Sample)) {
	if q.flushed && s.Time < q.lastFlush {
		q.unordered++
	}

	heap.Push(&q.h, queued{sample: s, seq: q.seq})
	q.seq++
	q.last = s.Time

	if q.last < FlushHorizon {
		return
	}

	limit := q.last - FlushHorizon
	if q.h[0].sample.Time < limit {
		q.flushUntil(limit, deliver)
	}
}

func (q *Queue) flushUntil(limit uint64, deliver func(*source.Sample)) {
	for q.h.Len() > 0 && q.h[0].sample.Time <= limit {
		deliver(heap.Pop(&q.h).(queued).sample)
	}

	q.lastFlush = limit
	q.flushed = true
}

// Flush delivers every queued sample.
func (q *Queue) Flush(deliver func(*source.Sample)) {
	for q.h.Len() > 0 {
		deliver(heap.Pop(&q.h).(queued).sample)
	}
}

func (q *Queue) Len() int {
	return q.h.Len()
}

// Unordered counts samples older than the last flush.
func (q *Queue) Unordered() uint64 {
	return q.unordered
}
