package connectivity

import (
	"sync"
	"time"
)

// ProbeState estado observado de un extremo (internet o puente DTE).
type ProbeState struct {
	OK       bool       `json:"ok"`
	Reason   string     `json:"reason"`
	LastOK   *time.Time `json:"last_ok"`
	LastFail *time.Time `json:"last_fail"`
}

// Snapshot vista consistente de ambos extremos en un instante.
type Snapshot struct {
	Internet ProbeState `json:"internet"`
	API      ProbeState `json:"api"`
}

// Status almacén concurrente del último resultado del sentinel. Se inyecta a
// quien lo necesite (handlers, workers) en lugar de vivir como global.
type Status struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStatus crea el almacén en estado inicial: ambos extremos caídos con
// razón "init" hasta que el sentinel complete su primera ronda.
func NewStatus() *Status {
	return &Status{
		snap: Snapshot{
			Internet: ProbeState{Reason: "init"},
			API:      ProbeState{Reason: "init"},
		},
	}
}

// Snapshot devuelve una copia del estado actual.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// markInternet registra el resultado de la sonda de internet.
func (s *Status) markInternet(ok bool, reason string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Internet = mark(s.snap.Internet, ok, reason, at)
}

// markAPI registra el resultado de la sonda del puente y devuelve si hubo
// transición caído -> arriba (el flanco que dispara el autoreenvío).
func (s *Status) markAPI(ok bool, reason string, at time.Time) (recovered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recovered = ok && !s.snap.API.OK && s.snap.API.Reason != "init"
	s.snap.API = mark(s.snap.API, ok, reason, at)
	return recovered
}

func mark(prev ProbeState, ok bool, reason string, at time.Time) ProbeState {
	next := prev
	next.OK = ok
	next.Reason = reason
	t := at
	if ok {
		next.LastOK = &t
	} else {
		next.LastFail = &t
	}
	return next
}
