package password

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

const dummySecret = "gosession-dummy-secret"

// Pool runs hashing work on its own goroutines, with at most size
// computations in flight. Callers block on ctx while they wait, never on a
// shared dispatch loop.
type Pool struct {
	hasher Hasher
	sem    *semaphore.Weighted

	dummyMu   sync.Mutex
	dummyHash string
}

// NewPool wraps h. A size <= 0 selects GOMAXPROCS.
func NewPool(h Hasher, size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		hasher: h,
		sem:    semaphore.NewWeighted(int64(size)),
	}
}

type hashResult struct {
	hash string
	ok   bool
	err  error
}

func (p *Pool) run(ctx context.Context, fn func() hashResult) hashResult {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return hashResult{err: err}
	}

	done := make(chan hashResult, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn()
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return hashResult{err: ctx.Err()}
	}
}

// Hash computes a new hash for secret.
func (p *Pool) Hash(ctx context.Context, secret string) (string, error) {
	res := p.run(ctx, func() hashResult {
		h, err := p.hasher.Hash(secret)
		return hashResult{hash: h, err: err}
	})
	return res.hash, res.err
}

// Verify checks secret against encodedHash. A secret longer than the
// hasher accepts is a mismatch, not an error, so callers answer it the same
// way as a wrong secret.
func (p *Pool) Verify(ctx context.Context, secret, encodedHash string) (bool, error) {
	res := p.run(ctx, func() hashResult {
		ok, err := p.hasher.Verify(secret, encodedHash)
		return hashResult{ok: ok, err: err}
	})
	if errors.Is(res.err, ErrSecretTooLong) {
		return false, nil
	}
	return res.ok, res.err
}

// VerifyDummy spends the same work as a real verification against a fixed
// hash. Callers use it when no stored hash exists so the miss is not
// distinguishable by latency. The result is always false.
func (p *Pool) VerifyDummy(ctx context.Context, secret string) error {
	hash, computed, err := p.dummy(ctx)
	if err != nil || computed {
		return err
	}
	if len(secret) == 0 {
		secret = " "
	}
	_, err = p.Verify(ctx, secret, hash)
	return err
}

// dummy returns the fixed hash, computing it under the semaphore on first
// use. The call that computes it reports computed; that hash costs as much
// as the verification it replaces.
func (p *Pool) dummy(ctx context.Context) (hash string, computed bool, err error) {
	p.dummyMu.Lock()
	defer p.dummyMu.Unlock()
	if p.dummyHash != "" {
		return p.dummyHash, false, nil
	}
	res := p.run(ctx, func() hashResult {
		h, err := p.hasher.Hash(dummySecret)
		return hashResult{hash: h, err: err}
	})
	if res.err != nil {
		return "", false, res.err
	}
	p.dummyHash = res.hash
	return res.hash, true, nil
}

// NeedsUpgrade only parses the hash and does not use the pool.
func (p *Pool) NeedsUpgrade(encodedHash string) (bool, error) {
	return p.hasher.NeedsUpgrade(encodedHash)
}
