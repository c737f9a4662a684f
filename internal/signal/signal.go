package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

var (
	// interruptChannel receives SIGINT (Ctrl+C), and SIGTERM on unix.
	interruptChannel chan os.Signal

	// addHandlerChannel registers a handler to run on shutdown.
	addHandlerChannel = make(chan func())

	// InterruptHandlersDone is closed after all interrupt handlers ran.
	InterruptHandlersDone = make(chan struct{})

	simulateInterruptChannel = make(chan struct{}, 1)

	startOnce sync.Once
)

// signals are the signals that trigger a clean shutdown. Unix builds add
// SIGTERM.
var signals = []os.Signal{os.Interrupt}

// SimulateInterrupt starts the shutdown sequence from inside the process,
// as a failing listener does.
func SimulateInterrupt() {
	start()
	select {
	case simulateInterruptChannel <- struct{}{}:
	default:
	}
}

// mainInterruptHandler waits for a signal or a simulated interrupt and
// runs the registered handlers in LIFO order. It must be run as a goroutine.
func mainInterruptHandler() {
	var interruptCallbacks []func()
	invokeCallbacks := func() {
		for i := range interruptCallbacks {
			idx := len(interruptCallbacks) - 1 - i
			interruptCallbacks[idx]()
		}
		close(InterruptHandlersDone)
	}

	for {
		select {
		case <-interruptChannel:
			invokeCallbacks()
			return
		case <-simulateInterruptChannel:
			invokeCallbacks()
			return
		case handler := <-addHandlerChannel:
			interruptCallbacks = append(interruptCallbacks, handler)
		}
	}
}

func start() {
	startOnce.Do(func() {
		interruptChannel = make(chan os.Signal, 1)
		signal.Notify(interruptChannel, signals...)
		go mainInterruptHandler()
	})
}

// AddInterruptHandler adds a handler to call on shutdown. Handlers added
// after shutdown started are not run.
func AddInterruptHandler(handler func()) {
	start()
	select {
	case addHandlerChannel <- handler:
	case <-InterruptHandlersDone:
	}
}

// Context returns a context cancelled when shutdown starts.
func Context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	AddInterruptHandler(cancel)
	return ctx
}

// InterruptRequested reports whether the shutdown handlers already ran.
func InterruptRequested() bool {
	select {
	case <-InterruptHandlersDone:
		return true
	default:
	}
	return false
}
