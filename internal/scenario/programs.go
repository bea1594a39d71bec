package scenario

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"corodebug/internal/asyncrt"
	"corodebug/internal/debug"
)

func runDeadlock(ctx context.Context, ex *asyncrt.Executor) error {
	left := ex.ChanNew(0)
	right := ex.ChanNew(0)
	defer release(ex, asyncrt.Here(), left, right)

	ex.Go(func(co *asyncrt.Co) {
		if _, err := co.Recv(left); err != nil {
			return
		}
		_ = co.Send(right, "pong") //nolint:errcheck
	})
	ex.Go(func(co *asyncrt.Co) {
		if _, err := co.Recv(right); err != nil {
			return
		}
		_ = co.Send(left, "ping") //nolint:errcheck
	})
	return ex.Run(ctx)
}

func runPipeline(ctx context.Context, ex *asyncrt.Executor) error {
	const items = 8
	raw := ex.ChanNew(2)
	doubled := ex.ChanNew(1)
	defer release(ex, asyncrt.Here(), raw, doubled)

	ex.Go(func(co *asyncrt.Co) {
		for i := 1; i <= items; i++ {
			if err := co.Send(raw, i); err != nil {
				return
			}
			if i%3 == 0 {
				co.Sleep(2 * time.Millisecond)
			}
		}
		_ = ex.ChanDone(raw) //nolint:errcheck
	})
	ex.Go(func(co *asyncrt.Co) {
		defer func() { _ = ex.ChanDone(doubled) }()
		for {
			v, err := co.Recv(raw)
			if err != nil {
				return
			}
			n, _ := v.(int)
			if err := co.Send(doubled, n*2); err != nil {
				return
			}
		}
	})

	var got []int
	ex.Go(func(co *asyncrt.Co) {
		for {
			v, err := co.Recv(doubled)
			if err != nil {
				return
			}
			n, _ := v.(int)
			got = append(got, n)
		}
	})

	if err := ex.Run(ctx); err != nil {
		return err
	}
	want := make([]int, 0, items)
	for i := 1; i <= items; i++ {
		want = append(want, i*2)
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("pipeline delivered %v, want %v", got, want)
	}
	return nil
}

func runChoose(ctx context.Context, ex *asyncrt.Executor) error {
	fast := ex.ChanNew(0)
	slow := ex.ChanNew(0)
	defer release(ex, asyncrt.Here(), fast, slow)

	produce := func(ch asyncrt.ChannelID, count int, every time.Duration) func(*asyncrt.Co) {
		return func(co *asyncrt.Co) {
			for i := range count {
				co.Sleep(every)
				if err := co.Send(ch, i); err != nil {
					return
				}
			}
			_ = ex.ChanDone(ch) //nolint:errcheck
		}
	}
	ex.Go(produce(fast, 6, 3*time.Millisecond))
	ex.Go(produce(slow, 3, 7*time.Millisecond))

	counts := make([]int, 2)
	ex.Go(func(co *asyncrt.Co) {
		live := []asyncrt.ChannelID{fast, slow}
		for len(live) > 0 {
			clauses := make([]asyncrt.ChooseClause, len(live))
			for i, ch := range live {
				clauses[i] = asyncrt.ChooseClause{Dir: debug.DirRecv, Chan: ch}
			}
			idx, _, err := co.Choose(clauses...)
			if errors.Is(err, asyncrt.ErrClosed) {
				live = slices.Delete(live, idx, idx+1)
				continue
			}
			if err != nil {
				return
			}
			if live[idx] == fast {
				counts[0]++
			} else {
				counts[1]++
			}
		}
	})

	if err := ex.Run(ctx); err != nil {
		return err
	}
	if counts[0] != 6 || counts[1] != 3 {
		return fmt.Errorf("choose received %d fast and %d slow messages, want 6 and 3", counts[0], counts[1])
	}
	return nil
}

func runSleepers(ctx context.Context, ex *asyncrt.Executor) error {
	defer release(ex, asyncrt.Here())

	delays := []int{40, 10, 30, 20}
	var woke []int
	for _, ms := range delays {
		ex.Go(func(co *asyncrt.Co) {
			co.Sleep(time.Duration(ms) * time.Millisecond)
			woke = append(woke, ms)
		})
	}
	if err := ex.Run(ctx); err != nil {
		return err
	}
	want := slices.Sorted(slices.Values(delays))
	if !slices.Equal(woke, want) {
		return fmt.Errorf("sleepers woke in order %v, want %v", woke, want)
	}
	return nil
}
