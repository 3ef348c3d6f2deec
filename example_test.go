package threadworker_test

import (
	"context"
	"fmt"

	threadworker "github.com/Swind/go-thread-worker"
)

// ExampleApplication_Run shows the main worker and pool working together.
func ExampleApplication_Run() {
	cfg := threadworker.DefaultConfig()
	cfg.PoolSize = 2
	cfg.LogLevel = "error"

	app, err := threadworker.New(cfg)
	if err != nil {
		panic(err)
	}

	err = app.Run(func(ctx context.Context, app *threadworker.Application) error {
		_ = app.Main.SubmitAndWait(func() {
			fmt.Println("on main thread:", app.Main.IsCurrent())
		})

		latch := threadworker.NewLatch(4)
		for range 4 {
			app.Pool.Submit(latch.CountDown)
		}
		latch.Wait()
		fmt.Println("pool tasks done")

		app.Resources.AttachFunc(func() error {
			fmt.Println("released on main thread:", app.Main.IsCurrent())
			return nil
		})
		return nil
	})
	fmt.Println("run error:", err)

	// Output:
	// on main thread: true
	// pool tasks done
	// released on main thread: true
	// run error: <nil>
}

// ExampleWorker shows a spawned worker running tasks in order.
func ExampleWorker() {
	w := threadworker.NewWorker("render")
	if err := w.Start(); err != nil {
		panic(err)
	}
	defer w.Stop()

	for i := range 3 {
		w.Submit(func() { fmt.Println("task", i) })
	}
	_ = w.SubmitAndWait(func() { fmt.Println("done") })

	// Output:
	// task 0
	// task 1
	// task 2
	// done
}

// ExampleResourceStack shows nested groups released in order.
func ExampleResourceStack() {
	stack := threadworker.NewResourceStack()

	stack.Push()
	stack.AttachFunc(func() error { fmt.Println("release device"); return nil })
	stack.AttachFunc(func() error { fmt.Println("release surface"); return nil })

	func() {
		hold := stack.Hold()
		defer hold.Release()
		stack.AttachFunc(func() error { fmt.Println("release frame buffer"); return nil })
	}()

	_ = stack.Pop()

	// Output:
	// release frame buffer
	// release device
	// release surface
}
