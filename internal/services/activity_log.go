package services

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"dragon-treasure/internal/models"
)

const MaxActivityEntries = 100

type ActivityListener func(entries []models.ConsoleEntry)

// ActivityLog is the per-session feed of what the claim flow is doing.
// Entries are kept newest first and capped at MaxActivityEntries. Listeners
// see snapshots in the order the changes were made.
type ActivityLog struct {
	// held across a change and its notification; taken before mu
	deliverMu sync.Mutex

	mu        sync.Mutex
	entries   []models.ConsoleEntry
	counter   int
	listeners map[int]ActivityListener
	nextSubID int
	logger    *log.Entry
	now       func() time.Time
}

// NewActivityLog creates an empty log. Every record is mirrored to logger
// when it is not nil.
func NewActivityLog(logger *log.Entry) *ActivityLog {
	return &ActivityLog{
		listeners: make(map[int]ActivityListener),
		logger:    logger,
		now:       time.Now,
	}
}

// Record adds an entry and notifies listeners. Listeners must not call
// back into the log from the notifying goroutine.
func (a *ActivityLog) Record(level models.LogLevel, message, detail string) models.ConsoleEntry {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	a.mu.Lock()
	a.counter++
	entry := models.ConsoleEntry{
		ID:        fmt.Sprintf("log-%d", a.counter),
		Timestamp: a.now().UnixMilli(),
		Level:     level,
		Message:   message,
		Detail:    detail,
	}

	entries := make([]models.ConsoleEntry, 0, min(len(a.entries)+1, MaxActivityEntries))
	entries = append(entries, entry)
	entries = append(entries, a.entries[:min(len(a.entries), MaxActivityEntries-1)]...)
	a.entries = entries

	snapshot, listeners := a.snapshotLocked()
	a.mu.Unlock()

	a.mirror(entry)
	notify(listeners, snapshot)
	return entry
}

// Clear empties the log and restarts the id sequence.
func (a *ActivityLog) Clear() {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	a.mu.Lock()
	a.entries = nil
	a.counter = 0
	snapshot, listeners := a.snapshotLocked()
	a.mu.Unlock()

	notify(listeners, snapshot)
}

func (a *ActivityLog) Entries() []models.ConsoleEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ConsoleEntry{}, a.entries...)
}

// Subscribe registers fn for every change. The returned func removes it.
func (a *ActivityLog) Subscribe(fn ActivityListener) func() {
	a.mu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.listeners[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// Follow subscribes fn and hands it the current entries first, so fn never
// sees a snapshot older than one it already got.
func (a *ActivityLog) Follow(fn ActivityListener) func() {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	unsubscribe := a.Subscribe(fn)
	fn(a.Entries())
	return unsubscribe
}

// Replay calls fn with the current entries, ordered with the notifications
// of Record and Clear.
func (a *ActivityLog) Replay(fn ActivityListener) {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	fn(a.Entries())
}

func (a *ActivityLog) snapshotLocked() ([]models.ConsoleEntry, []ActivityListener) {
	listeners := make([]ActivityListener, 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	return append([]models.ConsoleEntry{}, a.entries...), listeners
}

func notify(listeners []ActivityListener, snapshot []models.ConsoleEntry) {
	for _, fn := range listeners {
		// each listener gets its own copy
		fn(append([]models.ConsoleEntry{}, snapshot...))
	}
}

func (a *ActivityLog) mirror(entry models.ConsoleEntry) {
	if a.logger == nil {
		return
	}
	fields := log.Fields{"activity_id": entry.ID, "activity_level": entry.Level}
	if entry.Detail != "" {
		fields["detail"] = entry.Detail
	}
	logger := a.logger.WithFields(fields)

	switch entry.Level {
	case models.LogLevelError:
		logger.Error(entry.Message)
	case models.LogLevelWarn:
		logger.Warn(entry.Message)
	case models.LogLevelSystem:
		logger.Debug(entry.Message)
	default:
		logger.Info(entry.Message)
	}
}
