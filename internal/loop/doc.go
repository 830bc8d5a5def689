// Package loop provides the single-owner event loop that serialises all
// device state, command resolution and publishing for the Caseta bridge.
//
// Work is posted to the loop from any goroutine and executed one function at
// a time on the loop goroutine. Deferred work (button long-press detection)
// is scheduled with AfterFunc, whose handles are only ever inspected and
// cancelled from the loop goroutine, so the registries and timers that live
// on the loop need no locking.
//
// Usage:
//
//	l := loop.New(loop.Options{Logger: log})
//	go l.Run(ctx)
//	l.Post(func() { registry.Register(dev) })
//
// Tests use Manual, a virtual-time Scheduler that fires timers only when
// Advance is called.
package loop
