// Package monitor tracks live availability subscriptions and drives
// the post-mutation fan-out. Expired subscriptions are reaped lazily on
// the first fan-out that observes them past expiry.
package monitor

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// Subscription is one registered interest in a facility. Multiple
// subscriptions from the same peer for the same facility are
// independent entries.
type Subscription struct {
	ID       uuid.UUID
	Addr     *net.UDPAddr
	Facility string
	ExpireAt time.Time
}

// Expired reports whether now is strictly past the expiry instant.
func (s Subscription) Expired(now time.Time) bool {
	return now.After(s.ExpireAt)
}

// Registry owns the subscription list. It is used from the server's
// single dispatch goroutine only.
type Registry struct {
	subs []Subscription
	now  func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// NewRegistryAt uses clock for expiry decisions, for tests.
func NewRegistryAt(clock func() time.Time) *Registry {
	return &Registry{now: clock}
}

// Register appends a subscription expiring after duration d.
func (r *Registry) Register(addr *net.UDPAddr, facility string, d time.Duration) Subscription {
	sub := Subscription{
		ID:       uuid.New(),
		Addr:     addr,
		Facility: facility,
		ExpireAt: r.now().Add(d),
	}
	r.subs = append(r.subs, sub)
	return sub
}

// FanOut removes expired entries in place and invokes send for each
// surviving subscription of facility. Returns the number of sends.
func (r *Registry) FanOut(facility string, send func(Subscription)) int {
	now := r.now()
	kept := r.subs[:0]
	sent := 0
	for _, sub := range r.subs {
		if sub.Expired(now) {
			continue
		}
		kept = append(kept, sub)
		if sub.Facility == facility {
			send(sub)
			sent++
		}
	}
	for i := len(kept); i < len(r.subs); i++ {
		r.subs[i] = Subscription{}
	}
	r.subs = kept
	return sent
}

// Live returns a snapshot of the non-expired subscriptions.
func (r *Registry) Live() []Subscription {
	now := r.now()
	out := make([]Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if !sub.Expired(now) {
			out = append(out, sub)
		}
	}
	return out
}

// Len counts all tracked subscriptions, expired but unreaped included.
func (r *Registry) Len() int { return len(r.subs) }
