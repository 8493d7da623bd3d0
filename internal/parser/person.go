package parser

import (
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/textnorm"
)

// JointKeywords force the Joint member without naming one
var JointKeywords = []string{"both", "together", "shared", "chung", "같이"}

// PersonResult is the outcome of person extraction
type PersonResult struct {
	Person  ledger.Person
	IsJoint bool
	Rest    []string
}

// ExtractPerson removes member names and joint keywords from tokens. The last
// named member wins; a joint keyword overrides any name.
func ExtractPerson(tokens []string, fallback ledger.Person) PersonResult {
	res := PersonResult{Person: fallback}
	joint := false

	for _, tok := range tokens {
		word := textnorm.TrimPunct(textnorm.Fold(tok))
		if isJointKeyword(word) {
			joint = true
			continue
		}
		if p, ok := memberName(word); ok {
			res.Person = p
			continue
		}
		res.Rest = append(res.Rest, tok)
	}

	if joint {
		res.Person = ledger.PersonJoint
	}
	res.IsJoint = res.Person == ledger.PersonJoint
	return res
}

// memberName only accepts the exact member names, not the "both" synonym
func memberName(word string) (ledger.Person, bool) {
	switch word {
	case "jacob":
		return ledger.PersonJacob, true
	case "naomi":
		return ledger.PersonNaomi, true
	case "joint":
		return ledger.PersonJoint, true
	}
	return "", false
}

func isJointKeyword(word string) bool {
	for _, k := range JointKeywords {
		if word == k {
			return true
		}
	}
	return false
}
