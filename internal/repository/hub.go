package repository

import (
	"context"
	"sync"
)

type loadFunc func(ctx context.Context, collection string) (Snapshot, error)

// hub раздаёт снимки коллекций подписчикам.
//
// Снимки читаются под мьютексом, поэтому каждый подписчик получает их в порядке
// записи. У канала подписчика буфер на одно значение: непрочитанный снимок
// вытесняется более свежим.
type hub struct {
	mu   sync.Mutex
	load loadFunc
	subs map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan Snapshot
}

func newHub(load loadFunc) *hub {
	return &hub{
		load: load,
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

func (h *hub) subscribe(ctx context.Context, collection string) (<-chan Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.load(ctx, collection)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{ch: make(chan Snapshot, 1)}
	sub.ch <- snap
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[*subscriber]struct{})
	}
	h.subs[collection][sub] = struct{}{}

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[collection], sub)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch, nil
}

// publish перечитывает коллекцию и рассылает снимок, если на неё кто-то подписан.
func (h *hub) publish(ctx context.Context, collection string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[collection]
	if len(subs) == 0 {
		return nil
	}

	snap, err := h.load(context.WithoutCancel(ctx), collection)
	if err != nil {
		return err
	}
	for sub := range subs {
		sub.offer(snap)
	}
	return nil
}

func (s *subscriber) offer(snap Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
