// internal/client/headers.go
package client

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.8",
	"en-US,en;q=0.9,de;q=0.7",
	"en-US,en;q=0.9,fr;q=0.6",
}

// userAgentPool rotates through a fixed list of user agents so successive
// attempts do not present an identical client fingerprint.
type userAgentPool struct {
	mu     sync.Mutex
	agents []string
	cursor int
}

func newUserAgentPool(agents []string) *userAgentPool {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &userAgentPool{agents: agents}
}

func (p *userAgentPool) next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ua := p.agents[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.agents)
	return ua
}

// randomPublicIPv4 returns a dotted-quad address outside the private,
// loopback, link-local and multicast ranges, suitable for forged
// forwarding headers.
func randomPublicIPv4() string {
	for {
		a := rand.Intn(223) + 1
		b := rand.Intn(256)
		c := rand.Intn(256)
		d := rand.Intn(254) + 1

		switch {
		case a == 10:
			continue
		case a == 127:
			continue
		case a == 172 && b >= 16 && b <= 31:
			continue
		case a == 192 && b == 168:
			continue
		case a == 169 && b == 254:
			continue
		}
		return fmt.Sprintf("%d.%d.%d.%d", a, b, c, d)
	}
}

// applyDecoyHeaders sets headers that make each attempt look like an
// independent browser request arriving from a different origin.
func applyDecoyHeaders(h http.Header) {
	ip := randomPublicIPv4()
	h.Set("X-Forwarded-For", ip)
	h.Set("X-Real-IP", ip)
	h.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))])
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
}
