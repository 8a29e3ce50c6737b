package ports

import (
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.bug.st/serial"

	"github.com/dkaukov/usb-serial-for-android/internal/logging"
)

const defaultPollInterval = 2 * time.Second

var internalLogger = logging.New("ports", nil)

// Event reports a change in the system port list.
type Event struct {
	Name     string
	Attached bool // false means detached
}

// Lister enumerates the currently present port names.
type Lister func() ([]string, error)

// Watcher polls the system port list and reports attach/detach events.
// Transient enumeration failures are retried with exponential backoff
// inside a poll cycle before the cycle is skipped.
type Watcher struct {
	lister   Lister
	interval time.Duration

	events   chan Event
	stopCh   chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	known map[string]struct{}
}

// NewWatcher returns a stopped watcher. A nil lister enumerates real
// system serial ports; a non-positive interval selects the default.
func NewWatcher(lister Lister, interval time.Duration) *Watcher {
	if lister == nil {
		lister = serial.GetPortsList
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{
		lister:   lister,
		interval: interval,
		events:   make(chan Event, 16),
		stopCh:   make(chan struct{}),
		known:    make(map[string]struct{}),
	}
}

// Events is the attach/detach stream. Events are dropped (with a log
// line) when the consumer falls behind.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins polling in a background goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Stop ends polling. Idempotent. The event channel is closed once the
// poll loop has exited.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *Watcher) run() {
	defer close(w.events)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	var names []string
	op := func() error {
		var err error
		names, err = w.lister()
		return err
	}
	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = 10 * time.Millisecond
	boff.MaxElapsedTime = w.interval // retries never outlive a poll period
	if err := backoff.Retry(op, boff); err != nil {
		internalLogger.Warnf("port enumeration failed: %v", err)
		return
	}

	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}

	w.mu.Lock()
	var attached, detached []string
	for n := range present {
		if _, ok := w.known[n]; !ok {
			attached = append(attached, n)
		}
	}
	for n := range w.known {
		if _, ok := present[n]; !ok {
			detached = append(detached, n)
		}
	}
	w.known = present
	w.mu.Unlock()

	sort.Strings(attached)
	sort.Strings(detached)
	for _, n := range detached {
		w.emit(Event{Name: n, Attached: false})
	}
	for _, n := range attached {
		w.emit(Event{Name: n, Attached: true})
	}
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		internalLogger.Warnf("event dropped, consumer too slow: %+v", ev)
	}
}

// Known returns a snapshot of the last enumerated port names.
func (w *Watcher) Known() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.known))
	for n := range w.known {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
