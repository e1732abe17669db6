package match

import (
	"net/http"
	"strings"
)

// verbIntent is a coarse CRUD classification of a query.
type verbIntent string

const (
	intentNone   verbIntent = ""
	intentCreate verbIntent = "create"
	intentRead   verbIntent = "read"
	intentUpdate verbIntent = "update"
	intentDelete verbIntent = "delete"
)

// Earlier entries win on conflict, so destructive phrasing is checked first.
var intentPatterns = []struct {
	intent   verbIntent
	keywords []string
}{
	{intentDelete, []string{"delete", "remove", "destroy", "erase", "drop"}},
	{intentUpdate, []string{"update", "change", "modify", "edit", "rename", "adjust"}},
	{intentCreate, []string{"create", "add", "make", "register", "insert", "upload", "submit", "post", "new"}},
	{intentRead, []string{"get", "show", "list", "find", "fetch", "read", "search", "view", "lookup", "retrieve", "display", "check"}},
}

// detectIntent classifies a query by keyword rules. Token-boundary matching
// avoids "additional" triggering "add".
func detectIntent(query string) verbIntent {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, p := range intentPatterns {
		for _, kw := range p.keywords {
			if set[kw] {
				return p.intent
			}
		}
	}
	return intentNone
}

// methodIntent maps an HTTP method to its CRUD class.
func methodIntent(method string) verbIntent {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return intentCreate
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return intentRead
	case http.MethodPut, http.MethodPatch:
		return intentUpdate
	case http.MethodDelete:
		return intentDelete
	}
	return intentNone
}
