// Package threadworker runs work on specific OS threads.
//
// Some APIs (windowing systems, graphics contexts, many C libraries) may
// only be called from the thread that created their objects, and some only
// from the process main thread. Go moves goroutines between threads freely,
// so this package provides the pieces to pin work down:
//
//   - Worker: a task queue drained by one goroutine locked to one OS thread.
//     A Worker either spawns its own thread (Start) or takes over the caller's
//     (Run), which is how the main thread becomes a Worker.
//   - WorkerPool: N spawned Workers with round-robin dispatch.
//   - Latch: a countdown latch that can be re-armed.
//   - ResourceStack and ResourceHold: nested groups of release actions, so
//     thread-affine resources are released in a known order on a known thread.
//   - Application: the main worker, a pool and a resource stack wired
//     together, with no package level state.
//
// # Quick Start
//
//	func init() {
//		// main.main must start on the main thread.
//		runtime.LockOSThread()
//	}
//
//	func main() {
//		app, err := threadworker.New(threadworker.DefaultConfig())
//		if err != nil {
//			log.Fatal(err)
//		}
//		err = app.Run(func(ctx context.Context, app *threadworker.Application) error {
//			var win *Window
//			if err := app.Main.SubmitAndWait(func() { win = OpenWindow() }); err != nil {
//				return err
//			}
//			app.Resources.AttachOn(app.Main, win)
//
//			app.Pool.Submit(func() { loadAssets() })
//			return nil
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Thread Safety
//
// Every exported method may be called from any goroutine. Tasks submitted to
// a Worker from one goroutine run in the order submitted. A task submitted
// to a Worker from its own bound goroutine runs inline, so a Worker never
// deadlocks waiting on itself. Panics in tasks are recovered and reported;
// the Worker keeps running.
package threadworker
