package followup

import (
	"nau-assistant/pkg/utils"
)

// GenericFallback answers a reply that matches no rule of a binary or choice
// question.
const GenericFallback = "I'm sorry, I'm not sure how to help with that specific request. Is there something else about North American University that I can assist you with?"

var (
	AffirmativeTokens = []string{"yes", "yeah", "yep", "sure", "definitely", "absolutely"}
	NegativeTokens    = []string{"no", "nope", "not", "don't", "dont"}
)

// Resolve maps a free-text reply to the scripted continuation of spec. It is
// deterministic and never fails: unrecognised replies get a fallback text.
func Resolve(spec Spec, reply string) string {
	normalized := utils.NormalizeText(reply)

	switch s := spec.(type) {
	case Binary:
		return resolveBinary(s, normalized)
	case *Binary:
		return resolveBinary(*s, normalized)
	case Choice:
		return resolveChoice(s, normalized)
	case *Choice:
		return resolveChoice(*s, normalized)
	case Open:
		return resolveOpen(s, normalized)
	case *Open:
		return resolveOpen(*s, normalized)
	}
	return GenericFallback
}

func resolveBinary(s Binary, reply string) string {
	switch {
	case utils.ContainsAny(reply, AffirmativeTokens):
		return s.YesResponse
	case utils.ContainsAny(reply, NegativeTokens):
		return s.NoResponse
	}
	return GenericFallback
}

func resolveChoice(s Choice, reply string) string {
	for _, branch := range s.Branches {
		if utils.ContainsAny(reply, branch.Tokens) {
			return branch.Response
		}
	}
	return GenericFallback
}

func resolveOpen(s Open, reply string) string {
	for _, topic := range s.Topics {
		if topic.Keyword != "" && utils.ContainsAny(reply, []string{topic.Keyword}) {
			return topic.Response
		}
	}
	if s.Fallback != "" {
		return s.Fallback
	}
	return GenericFallback
}
