// Package workers wraps dubbogo/gost's generic task pool for the
// handful of background jobs the server schedules off the connection
// goroutines: binlog flush, tag-manager sweeps, and replica-write
// fan-out (thread-pool scheduling itself is out of scope, but a runnable
// server still needs somewhere to hand these off). Grounded verbatim on
// server/net/mysql_server.go's gxsync.NewTaskPoolSimple(0) / Close()
// pattern and server/net/session.go's taskPool.AddTask(f) call site.
package workers

import (
	gxsync "github.com/dubbogo/gost/sync"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/ccerr"
)

// Pool runs submitted jobs on a bounded goroutine pool.
type Pool struct {
	tasks gxsync.GenericTaskPool
}

// NewPool creates a pool sized to limit goroutines (0 lets gost pick its
// own default, matching the teacher's NewTaskPoolSimple(0) call).
func NewPool(limit int) *Pool {
	return &Pool{tasks: gxsync.NewTaskPoolSimple(limit)}
}

// Submit schedules fn to run on the pool. Returns an error only if the
// pool has already been closed.
func (p *Pool) Submit(fn func()) error {
	if p.tasks == nil {
		return ccerr.Wrap(ccerr.KindInternal, "workers.Pool.Submit", errPoolClosed)
	}
	p.tasks.AddTask(fn)
	return nil
}

// Close stops accepting new work and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	if p.tasks != nil {
		p.tasks.Close()
		p.tasks = nil
	}
}

type poolError string

func (e poolError) Error() string { return string(e) }

const errPoolClosed = poolError("workers: pool is closed")
