package device

import (
	"runtime"
	"time"
)

// HostLifecycle implements Lifecycle for a Linux-class host. Restart is
// delegated to the composition root, which owns process teardown.
type HostLifecycle struct {
	start   time.Time
	restart func()
}

func NewHostLifecycle(restart func()) *HostLifecycle {
	return &HostLifecycle{start: time.Now(), restart: restart}
}

func (l *HostLifecycle) Restart() {
	if l.restart != nil {
		l.restart()
	}
}

func (l *HostLifecycle) UptimeMs() int64 {
	return time.Since(l.start).Milliseconds()
}

func (l *HostLifecycle) DiagnosticSnapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Snapshot{
		FreeHeapBytes: ms.HeapIdle,
		NumCPU:        runtime.NumCPU(),
	}
}
