package usecase

import (
	"sync"

	"TradeDesk/internal/domain/models"
)

// ParamStore caches the last authoritative collection per strategy kind.
// It is never the source of truth: slots are only ever replaced wholesale
// with what the backend returned. Callers always receive copies.
type ParamStore struct {
	mu        sync.RWMutex
	slots     map[models.StrategyKind][]models.Ticker
	revisions map[models.StrategyKind]uint64
}

func NewParamStore() *ParamStore {
	return &ParamStore{
		slots:     make(map[models.StrategyKind][]models.Ticker),
		revisions: make(map[models.StrategyKind]uint64),
	}
}

// Replace swaps the slot for kind and returns the new revision.
func (p *ParamStore) Replace(kind models.StrategyKind, tickers []models.Ticker) uint64 {
	cp := cloneAll(tickers)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots[kind] = cp
	p.revisions[kind]++
	return p.revisions[kind]
}

// Get returns the cached collection and its revision. Revision 0 means the
// kind was never loaded.
func (p *ParamStore) Get(kind models.StrategyKind) ([]models.Ticker, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneAll(p.slots[kind]), p.revisions[kind]
}

func (p *ParamStore) Find(kind models.StrategyKind, symbol string) (models.Ticker, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.slots[kind] {
		if t.Base().Symbol == symbol {
			return models.CloneTicker(t), true
		}
	}
	return nil, false
}

// Clear drops every slot, e.g. on logout.
func (p *ParamStore) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.slots {
		delete(p.slots, k)
		p.revisions[k]++
	}
}

func cloneAll(in []models.Ticker) []models.Ticker {
	out := make([]models.Ticker, len(in))
	for i, t := range in {
		out[i] = models.CloneTicker(t)
	}
	return out
}
