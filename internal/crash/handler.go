package crash

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"tg-sanctions/internal/logger"
)

// RecoverWithStack recovers a panic and logs it together with the stack trace
func RecoverWithStack(moduleName string) {
	if r := recover(); r != nil {
		report(moduleName, r, debug.Stack(), false)
	}
}

// RecoverWithStackAndExit is deferred by main: it logs the panic and exits non-zero
func RecoverWithStackAndExit(moduleName string) {
	if r := recover(); r != nil {
		report(moduleName, r, debug.Stack(), true)

		// give the log sinks a moment to flush
		_ = logger.Sync()
		time.Sleep(1 * time.Second)

		os.Exit(1)
	}
}

func report(moduleName string, r interface{}, stack []byte, fatal bool) {
	prefix := "PANIC"
	if fatal {
		prefix = "FATAL PANIC"
	}

	logger.Errorf("%s in %s: %v", prefix, moduleName, r)
	logger.Errorf("Stack trace:\n%s", string(stack))

	// stderr as well, so container logs always carry it
	fmt.Fprintf(os.Stderr, "[%s] %s - %s: %v\n", prefix, time.Now().Format("2006-01-02 15:04:05"), moduleName, r)
	fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(stack))

	logRuntimeInfo()
}

// SafeGoroutine starts a goroutine with panic recovery
func SafeGoroutine(name string, fn func()) {
	go func() {
		defer RecoverWithStack(fmt.Sprintf("goroutine-%s", name))
		fn()
	}()
}

// Go starts fn on wg so that shutdown can wait for it. A panic in fn is
// logged and swallowed; it never propagates to wg.Wait.
func Go(wg *conc.WaitGroup, name string, fn func()) {
	wg.Go(func() {
		var pc panics.Catcher
		pc.Try(fn)
		if r := pc.Recovered(); r != nil {
			report(fmt.Sprintf("goroutine-%s", name), r.Value, r.Stack, false)
		}
	})
}

func logRuntimeInfo() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := fmt.Sprintf(`
Runtime Information:
- Go version: %s
- Number of CPUs: %d
- Number of goroutines: %d
- Memory stats:
  - Heap allocated: %d KB
  - Heap in use: %d KB
  - Stack in use: %d KB
  - Num GC: %d
`,
		runtime.Version(),
		runtime.NumCPU(),
		runtime.NumGoroutine(),
		bToKb(m.HeapAlloc),
		bToKb(m.HeapInuse),
		bToKb(m.StackInuse),
		m.NumGC,
	)

	logger.Error(info)
}

func bToKb(b uint64) uint64 {
	return b / 1024
}

// SetupCrashHandler turns memory faults into recoverable panics
func SetupCrashHandler() {
	debug.SetPanicOnFault(true)
}
