package execution

import (
	"sync"

	"ntr/internal/events"
	"ntr/internal/reporter"
)

// laneBuffer is how many events a lane queues before the reader waits
const laneBuffer = 64

// workerPool runs one goroutine per lane. Events submitted to a lane reach the
// reporter in submission order; different lanes call it concurrently.
type workerPool struct {
	lanes []chan events.Event
	wg    sync.WaitGroup
}

func newWorkerPool(workerCount int, r reporter.Reporter) *workerPool {
	if workerCount <= 0 {
		workerCount = 1
	}

	p := &workerPool{lanes: make([]chan events.Event, workerCount)}
	for i := range p.lanes {
		queue := make(chan events.Event, laneBuffer)
		p.lanes[i] = queue

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for ev := range queue {
				switch ev.Type {
				case events.TypeTestBegin:
					r.OnTestBegin(ev.Test, ev.Result)
				case events.TypeTestEnd:
					r.OnTestEnd(ev.Test, ev.Result)
				}
			}
		}()
	}
	return p
}

func (p *workerPool) size() int {
	return len(p.lanes)
}

func (p *workerPool) submit(lane int, ev events.Event) {
	p.lanes[lane%len(p.lanes)] <- ev
}

// wait drains every lane and stops the workers
func (p *workerPool) wait() {
	for _, queue := range p.lanes {
		close(queue)
	}
	p.wg.Wait()
}
