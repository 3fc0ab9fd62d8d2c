package optimistic

// Ident names a habit in local state. A Local ident is a placeholder for a
// habit the server has not confirmed yet; a Persisted ident is the server's
// id. The two never compare equal, even for the same string.
type Ident struct {
	kind identKind
	id   string
}

type identKind uint8

const (
	kindLocal identKind = iota + 1
	kindPersisted
)

const localPrefix = "local-"

// Local names a habit that only exists on this client so far.
func Local(tempID string) Ident {
	return Ident{kind: kindLocal, id: tempID}
}

// Persisted names a habit by its server id.
func Persisted(id string) Ident {
	return Ident{kind: kindPersisted, id: id}
}

// IsLocal reports whether the server has yet to confirm the habit.
func (i Ident) IsLocal() bool { return i.kind == kindLocal }

// IsPersisted reports whether i is a server id.
func (i Ident) IsPersisted() bool { return i.kind == kindPersisted }

// IsZero reports whether i was never set.
func (i Ident) IsZero() bool { return i.kind == 0 }

// ID is the raw identifier: the temp id for Local, the server id for Persisted.
func (i Ident) ID() string { return i.id }

func (i Ident) String() string {
	switch i.kind {
	case kindLocal:
		return "local(" + i.id + ")"
	case kindPersisted:
		return i.id
	}
	return "<none>"
}
