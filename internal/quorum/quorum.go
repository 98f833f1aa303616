package quorum

import (
	"context"
	"fmt"
	"time"
)

// ReplicaWriteFunc performs the replicate call to a single follower.
// Returns true if the follower acknowledged the write.
type ReplicaWriteFunc func(ctx context.Context, target string) (bool, error)

// WriteResult represents the result of one replication round.
type WriteResult struct {
	Success      bool
	Acks         int
	Required     int
	Attempted    int
	Elapsed      time.Duration
	ErrorMessage string
}

type outcome struct {
	target string
	ack    bool
	err    error
}

// DoWrite fans a write out to all targets concurrently and resolves as
// soon as requiredW acknowledgements arrive, without waiting for the
// remaining calls. If timeout elapses first, the round resolves as
// failed; in-flight calls are not cancelled either way — they keep
// running detached and their late results are dropped (the results
// channel is buffered to the fan-out size, so a straggler's send never
// blocks).
func DoWrite(ctx context.Context, targets []string, requiredW int, timeout time.Duration, writeFn ReplicaWriteFunc) WriteResult {
	start := time.Now()

	if len(targets) == 0 {
		return WriteResult{
			Required:     requiredW,
			ErrorMessage: "no followers provided",
		}
	}
	if requiredW < 1 || requiredW > len(targets) {
		return WriteResult{
			Required:     requiredW,
			Attempted:    len(targets),
			ErrorMessage: fmt.Sprintf("required W=%d out of range [1, %d]", requiredW, len(targets)),
		}
	}

	results := make(chan outcome, len(targets))

	// Detach the per-call context from the round: resolving the round
	// (or the caller's request finishing) must not cancel stragglers.
	callCtx := context.WithoutCancel(ctx)

	for _, target := range targets {
		go func(target string) {
			ack, err := writeFn(callCtx, target)
			results <- outcome{target: target, ack: ack, err: err}
		}(target)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		acks     int
		replied  int
		firstErr error
	)

	for replied < len(targets) {
		select {
		case res := <-results:
			replied++
			if res.ack {
				acks++
				if acks >= requiredW {
					return WriteResult{
						Success:   true,
						Acks:      acks,
						Required:  requiredW,
						Attempted: len(targets),
						Elapsed:   time.Since(start),
					}
				}
			} else if res.err != nil && firstErr == nil {
				firstErr = fmt.Errorf("follower %s: %w", res.target, res.err)
			}

		case <-timer.C:
			return timedOutResult(acks, requiredW, len(targets), start, firstErr)

		case <-ctx.Done():
			return WriteResult{
				Acks:         acks,
				Required:     requiredW,
				Attempted:    len(targets),
				Elapsed:      time.Since(start),
				ErrorMessage: fmt.Sprintf("cancelled: %v", ctx.Err()),
			}
		}
	}

	// Every follower replied and quorum was still not met; no point
	// waiting out the timer.
	return timedOutResult(acks, requiredW, len(targets), start, firstErr)
}

func timedOutResult(acks, requiredW, attempted int, start time.Time, firstErr error) WriteResult {
	msg := fmt.Sprintf("quorum not met: acks=%d required=%d followers=%d", acks, requiredW, attempted)
	if firstErr != nil {
		msg += fmt.Sprintf(" (%v)", firstErr)
	}
	return WriteResult{
		Acks:         acks,
		Required:     requiredW,
		Attempted:    attempted,
		Elapsed:      time.Since(start),
		ErrorMessage: msg,
	}
}
