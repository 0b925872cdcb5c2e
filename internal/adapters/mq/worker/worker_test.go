package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/mq/queue"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/mq/worker"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestInMemoryWorker(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a worker on a queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		w := worker.NewInMemoryWorker(q, worker.WithName("test-worker"), worker.WithPool("test"))
		go w.Run(ctx)

		convey.Convey("When tasks are queued", func() {
			var mu sync.Mutex
			var order []int
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				convey.So(q.Enqueue(ctx, func(context.Context) {
					defer wg.Done()
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
				}), convey.ShouldBeTrue)
			}
			wg.Wait()

			convey.Convey("Then a single worker runs them in order", func() {
				convey.So(order, convey.ShouldResemble, []int{0, 1, 2, 3, 4})
			})
		})

		convey.Convey("When a task panics", func() {
			done := make(chan struct{})
			q.Enqueue(ctx, func(context.Context) { panic("boom") })
			q.Enqueue(ctx, func(context.Context) { close(done) })

			convey.Convey("Then the worker keeps going", func() {
				finished := false
				select {
				case <-done:
					finished = true
				case <-time.After(time.Second):
				}
				convey.So(finished, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then Run returns", func() {
				convey.So(err, convey.ShouldBeNil)
				<-w.Done()
			})
		})
	})
}

func TestPool(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a pool of workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		p := worker.NewPool("fetch", 4, q)
		p.Start(ctx)

		convey.So(p.Size(), convey.ShouldEqual, 4)

		convey.Convey("Tasks run concurrently and drain on shutdown", func() {
			var running, peak atomic.Int32
			var ran atomic.Int32
			for i := 0; i < 8; i++ {
				q.Enqueue(ctx, func(context.Context) {
					n := running.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					running.Add(-1)
					ran.Add(1)
				})
			}

			convey.So(p.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(ran.Load(), convey.ShouldEqual, 8)
			convey.So(peak.Load(), convey.ShouldBeGreaterThan, 1)
		})

		convey.Convey("A zero size still yields one worker", func() {
			single := worker.NewPool("loop", 0, queue.NewInMemoryQueue())
			convey.So(single.Size(), convey.ShouldEqual, 1)
			_ = p.Shutdown(ctx)
		})
	})
}
