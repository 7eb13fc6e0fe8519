package esplayer

import (
	"context"
	"sync"
)

type playerRoutinePoolRunnable interface {
	run(context.Context) error
}

type playerRoutinePool struct {
	ctx       context.Context
	ctxCancel func()
	wg        sync.WaitGroup

	err chan error
}

func (rp *playerRoutinePool) initialize() {
	rp.ctx, rp.ctxCancel = context.WithCancel(context.Background())
	rp.err = make(chan error)
}

func (rp *playerRoutinePool) close() {
	rp.ctxCancel()
	rp.wg.Wait()
}

func (rp *playerRoutinePool) errorChan() chan error {
	return rp.err
}

func (rp *playerRoutinePool) add(r playerRoutinePoolRunnable) {
	rp.wg.Add(1)
	go func() {
		defer rp.wg.Done()

		err := r.run(rp.ctx)
		if err != nil {
			select {
			case rp.err <- err:
			case <-rp.ctx.Done():
			}
		}
	}()
}
