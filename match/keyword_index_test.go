package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apibridge/apibridge/catalog"
)

func indexFor(tools ...*catalog.Tool) *keywordIndex {
	entries := make([]*toolEntry, 0, len(tools))
	for _, tool := range tools {
		entries = append(entries, &toolEntry{tool: tool})
	}
	return buildKeywordIndex(entries)
}

func TestKeywordScoreBounds(t *testing.T) {
	idx := indexFor(
		&catalog.Tool{Name: "addPet", Description: "Add a new pet", Endpoint: catalog.Endpoint{Method: "POST", Path: "/pet"}},
		&catalog.Tool{Name: "getOrder", Description: "Fetch an order", Endpoint: catalog.Endpoint{Method: "GET", Path: "/order"}},
	)

	for _, query := range []string{"add a pet", "fetch order", "completely unrelated words"} {
		s := idx.score(tokenize(query), "addPet")
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestKeywordScoreRareTokensDominate(t *testing.T) {
	// "pet" appears in both tools, "order" only in one.
	idx := indexFor(
		&catalog.Tool{Name: "addPet", Description: "Add a pet", Endpoint: catalog.Endpoint{Method: "POST", Path: "/pet"}},
		&catalog.Tool{Name: "orderPet", Description: "Order a pet", Endpoint: catalog.Endpoint{Method: "POST", Path: "/store/order"}},
	)

	tokens := tokenize("order pet")
	assert.Greater(t, idx.score(tokens, "orderPet"), idx.score(tokens, "addPet"))
}

func TestKeywordScoreUnknownTokensCountAgainst(t *testing.T) {
	idx := indexFor(
		&catalog.Tool{Name: "addPet", Description: "Add a pet", Endpoint: catalog.Endpoint{Method: "POST", Path: "/pet"}},
	)

	full := idx.score(tokenize("pet"), "addPet")
	diluted := idx.score(tokenize("pet zzzunknown"), "addPet")
	assert.Greater(t, full, diluted)
}

func TestKeywordScoreEmptyQuery(t *testing.T) {
	idx := indexFor(
		&catalog.Tool{Name: "addPet", Endpoint: catalog.Endpoint{Method: "POST", Path: "/pet"}},
	)
	assert.Zero(t, idx.score(nil, "addPet"))
}
