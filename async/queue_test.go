package async

import (
	"sync"

	gc "gopkg.in/check.v1"
)

type QueueSuite struct{}

func (s *QueueSuite) TestSerialQueuePreservesOrder(c *gc.C) {
	var q = NewSerialQueue()
	defer q.Close()

	var out []int
	for i := 0; i != 100; i++ {
		var i = i
		q.Submit(func() { out = append(out, i) })
	}
	q.Sync()

	c.Assert(out, gc.HasLen, 100)
	for i := range out {
		c.Check(out[i], gc.Equals, i)
	}
}

func (s *QueueSuite) TestSubmitDoesNotBlockOnSlowFunctions(c *gc.C) {
	var q = NewSerialQueue()
	defer q.Close()

	var gate = make(Promise)
	var ran = make(chan int, 3)

	q.Submit(func() { gate.Wait(); ran <- 1 })
	q.Submit(func() { ran <- 2 })
	q.Submit(func() { ran <- 3 })

	// All three submissions returned while the first is still blocked.
	c.Check(len(ran), gc.Equals, 0)
	gate.Resolve()
	q.Sync()

	c.Check([]int{<-ran, <-ran, <-ran}, gc.DeepEquals, []int{1, 2, 3})
}

func (s *QueueSuite) TestCloseDrainsAndDropsLaterSubmissions(c *gc.C) {
	var q = NewSerialQueue()

	var mu sync.Mutex
	var count int
	for i := 0; i != 10; i++ {
		q.Submit(func() { mu.Lock(); count++; mu.Unlock() })
	}
	q.Close()
	q.Submit(func() { mu.Lock(); count += 100; mu.Unlock() })
	q.Sync() // Returns immediately.

	mu.Lock()
	c.Check(count, gc.Equals, 10)
	mu.Unlock()
}

func (s *QueueSuite) TestQueueFunc(c *gc.C) {
	var calls int
	var q Queue = QueueFunc(func(fn func()) { calls++; fn() })

	var ran bool
	q.Submit(func() { ran = true })

	c.Check(calls, gc.Equals, 1)
	c.Check(ran, gc.Equals, true)
}

var _ = gc.Suite(&QueueSuite{})
