// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

var errFakeSpawn = errors.New("fake spawn failure")

// fakeJob exits with exitCode after delay, or with -1 once terminated.
type fakeJob struct {
	pid        int
	exitCode   int
	done       chan struct{}
	once       sync.Once
	timer      *time.Timer
	terminated atomic.Bool
	waits      atomic.Int32
}

func newFakeJob(pid, exitCode int, delay time.Duration) *fakeJob {
	j := &fakeJob{
		pid:      pid,
		exitCode: exitCode,
		done:     make(chan struct{}),
	}
	j.timer = time.AfterFunc(delay, j.finish)

	return j
}

func (j *fakeJob) finish() {
	j.once.Do(func() { close(j.done) })
}

func (j *fakeJob) Wait(ctx context.Context, timeout time.Duration) (int, error) {
	j.waits.Add(1)

	var expired <-chan time.Time

	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()

		expired = t.C
	}

	select {
	case <-j.done:
		if j.terminated.Load() {
			return -1, nil
		}

		return j.exitCode, nil
	case <-expired:
		return -1, ErrWaitTimeout
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func (j *fakeJob) Terminate() error {
	select {
	case <-j.done:
		return nil
	default:
	}

	j.terminated.Store(true)
	j.timer.Stop()
	j.finish()

	return nil
}

func (j *fakeJob) Pid() int {
	return j.pid
}

type fakeResult struct {
	exitCode int
	delay    time.Duration
	err      error
}

// fakeSpawner hands out jobs keyed by client argument, searched from the
// end: "admin@m1" or a command for ssh, a source or destination for scp.
type fakeSpawner struct {
	mu      sync.Mutex
	results map[string]fakeResult
	specs   []ProcessSpec
	jobs    []*fakeJob
}

func newFakeSpawner(results map[string]fakeResult) *fakeSpawner {
	return &fakeSpawner{results: results}
}

func (s *fakeSpawner) Spawn(_ context.Context, spec ProcessSpec) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res fakeResult

	for i := len(spec.Args) - 1; i >= 0; i-- {
		if r, ok := s.results[spec.Args[i]]; ok {
			res = r
			break
		}
	}

	if res.err != nil {
		closeAll(spec.Closers)
		return nil, errors.Join(ErrCouldNotStartProcess, res.err)
	}

	s.specs = append(s.specs, spec)
	j := newFakeJob(1000+len(s.jobs), res.exitCode, res.delay)
	s.jobs = append(s.jobs, j)

	return j, nil
}

func (s *fakeSpawner) spawned() []*fakeJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*fakeJob(nil), s.jobs...)
}

func newMemFs() afero.Fs {
	return afero.NewMemMapFs()
}

// cancelAfterWaitJob cancels a context as soon as the wrapped job reports
// its exit, so the caller sees a real exit code with the context already done.
type cancelAfterWaitJob struct {
	Job
	cancel context.CancelFunc
}

func (j cancelAfterWaitJob) Wait(ctx context.Context, timeout time.Duration) (int, error) {
	rc, err := j.Job.Wait(ctx, timeout)
	j.cancel()

	return rc, err
}

// firstJobCancels wraps the first spawned job in a cancelAfterWaitJob.
type firstJobCancels struct {
	*fakeSpawner
	cancel context.CancelFunc
}

func (s firstJobCancels) Spawn(ctx context.Context, spec ProcessSpec) (Job, error) {
	j, err := s.fakeSpawner.Spawn(ctx, spec)
	if err != nil || len(s.spawned()) != 1 {
		return j, err
	}

	return cancelAfterWaitJob{Job: j, cancel: s.cancel}, nil
}
