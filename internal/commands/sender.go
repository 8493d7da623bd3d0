package commands

import (
	"strings"

	"github.com/gmsas95/ledgerbot/internal/ledger"
)

// Resolver maps a chat user to a household member
type Resolver struct {
	users    map[string]ledger.Person
	fallback ledger.Person
}

// NewResolver builds a resolver from platform user IDs ("slack:U123" or
// "U123", matched case-insensitively) to member names. fallback is used when
// nothing matches.
func NewResolver(users map[string]string, fallback ledger.Person) *Resolver {
	r := &Resolver{users: make(map[string]ledger.Person), fallback: fallback}
	if r.fallback == "" {
		r.fallback = ledger.PersonJacob
	}
	for id, name := range users {
		if p, ok := ledger.ParsePerson(name); ok {
			r.users[strings.ToLower(id)] = p
		}
	}
	return r
}

// Resolve looks up the user ID, then falls back to the display name:
// anything containing "naomi" or "nao" is Naomi, a name containing "jacob"
// is Jacob, everyone else is the fallback member.
func (r *Resolver) Resolve(source, userID, displayName string) ledger.Person {
	if p, ok := r.users[strings.ToLower(source+":"+userID)]; ok {
		return p
	}
	if p, ok := r.users[strings.ToLower(userID)]; ok {
		return p
	}

	name := strings.ToLower(displayName)
	switch {
	case strings.Contains(name, "naomi"), strings.Contains(name, "nao"):
		return ledger.PersonNaomi
	case strings.Contains(name, "jacob"):
		return ledger.PersonJacob
	}
	return r.fallback
}
