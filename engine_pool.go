package jshell

import "sync"

// EnginePool hands out idle engines of one kind. Engines taken from the pool
// must be returned with Put or closed by the caller.
type EnginePool struct {
	engineType string
	m          sync.Mutex
	saved      []Engine
}

func (ep *EnginePool) Get() (Engine, error) {
	ep.m.Lock()
	defer ep.m.Unlock()
	n := len(ep.saved)
	if n == 0 {
		return ep.New()
	}
	x := ep.saved[n-1]
	ep.saved = ep.saved[0 : n-1]
	return x, nil
}

func (ep *EnginePool) Put(e Engine) {
	ep.m.Lock()
	defer ep.m.Unlock()
	ep.saved = append(ep.saved, e)
}

func (ep *EnginePool) Shutdown() {
	ep.m.Lock()
	defer ep.m.Unlock()
	for _, e := range ep.saved {
		e.Close()
	}
	ep.saved = nil
}

func (ep *EnginePool) New() (Engine, error) {
	return NewEngine(ep.engineType)
}

func InitEnginePool(engineType string) *EnginePool {
	return &EnginePool{
		engineType: engineType,
		m:          sync.Mutex{},
		saved:      make([]Engine, 0, 4),
	}
}
