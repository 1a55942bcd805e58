package record

// SelectionGuard tracks the single active record id. Async callbacks check
// IsActive right before rendering; a mismatch means the result is stale and
// must be discarded.
type SelectionGuard struct {
	active int64
	set    bool
}

// Token ties an async callback to the selection it was started for.
type Token struct{ id int64 }

// ID is the record id the token was issued for.
func (t Token) ID() int64 { return t.id }

// Activate makes id the active record, replacing any previous one.
func (g *SelectionGuard) Activate(id int64) Token {
	g.active = id
	g.set = true
	return Token{id: id}
}

// Current reports whether t still names the active record.
func (g *SelectionGuard) Current(t Token) bool {
	return g.IsActive(t.id)
}

// Deactivate clears the selection.
func (g *SelectionGuard) Deactivate() {
	g.active = 0
	g.set = false
}

// IsActive reports whether id is the active record.
func (g *SelectionGuard) IsActive(id int64) bool {
	return g.set && g.active == id
}

// Active returns the active id, if any.
func (g *SelectionGuard) Active() (int64, bool) {
	return g.active, g.set
}
