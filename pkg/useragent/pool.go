package useragent

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync/atomic"
)

// Defaults are current desktop browser User-Agents, one per major engine
// and platform pairing.
var Defaults = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

// Pool hands out User-Agent strings for outgoing page fetches.
type Pool struct {
	agents []string
	next   atomic.Uint64
}

// NewPool builds a pool from agents, ignoring blank entries.
// With nothing usable it falls back to Defaults.
func NewPool(agents []string) *Pool {
	kept := make([]string, 0, len(agents))
	for _, a := range agents {
		if a = strings.TrimSpace(a); a != "" {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, Defaults...)
	}
	return &Pool{agents: kept}
}

// Next returns agents in round-robin order. Safe for concurrent use.
func (p *Pool) Next() string {
	idx := p.next.Add(1) - 1
	return p.agents[idx%uint64(len(p.agents))]
}

// Random picks an agent using crypto/rand, falling back to Next on failure.
func (p *Pool) Random() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.agents))))
	if err != nil {
		return p.Next()
	}
	return p.agents[n.Int64()]
}

// Len reports how many agents the pool rotates through.
func (p *Pool) Len() int {
	return len(p.agents)
}
