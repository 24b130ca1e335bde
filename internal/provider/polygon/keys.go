package polygon

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// apiKey pairs a key with its own request budget.
type apiKey struct {
	value   string
	limiter *rate.Limiter
}

func (k *apiKey) prefix() string {
	if len(k.value) > 8 {
		return k.value[:8]
	}
	return k.value
}

// keyPool hands out keys over a channel so concurrent callers rotate through
// them; each key waits on its own limiter before it is handed out.
type keyPool struct {
	ch chan *apiKey
}

func newKeyPool(keys []string, perMinute int) *keyPool {
	if len(keys) == 0 {
		keys = []string{""}
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	p := &keyPool{ch: make(chan *apiKey, len(keys))}
	for _, k := range keys {
		p.ch <- &apiKey{value: k, limiter: rate.NewLimiter(limit, 1)}
	}
	return p
}

func (p *keyPool) acquire(ctx context.Context) (*apiKey, error) {
	select {
	case k := <-p.ch:
		if err := k.limiter.Wait(ctx); err != nil {
			p.ch <- k
			return nil, err
		}
		return k, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *keyPool) release(k *apiKey) {
	p.ch <- k
}
