// Package gate decides whether a requester may use the bot at all.
package gate

// Gate holds the optional allow-set of Telegram user IDs. An empty set
// permits everyone.
type Gate struct {
	allowed map[int64]struct{}
}

func New(ids []int64) *Gate {
	g := &Gate{allowed: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		g.allowed[id] = struct{}{}
	}
	return g
}

func (g *Gate) Allowed(userID int64) bool {
	if len(g.allowed) == 0 {
		return true
	}
	_, ok := g.allowed[userID]
	return ok
}
