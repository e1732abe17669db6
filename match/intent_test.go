package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectIntent(t *testing.T) {
	cases := map[string]verbIntent{
		"add a new pet":             intentCreate,
		"delete the old order":      intentDelete,
		"update pet 5":              intentUpdate,
		"show me all pets":          intentRead,
		"hello there":               intentNone,
		"remove and then add a pet": intentDelete, // destructive phrasing wins
	}
	for query, want := range cases {
		assert.Equal(t, want, detectIntent(query), query)
	}
}

func TestDetectIntentTokenBoundaries(t *testing.T) {
	// "additional" must not trigger "add".
	assert.Equal(t, intentNone, detectIntent("additional information"))
	// "dropped" must not trigger "drop".
	assert.Equal(t, intentNone, detectIntent("dropped my phone"))
}

func TestMethodIntent(t *testing.T) {
	assert.Equal(t, intentCreate, methodIntent("POST"))
	assert.Equal(t, intentRead, methodIntent("get"))
	assert.Equal(t, intentRead, methodIntent("HEAD"))
	assert.Equal(t, intentUpdate, methodIntent("PUT"))
	assert.Equal(t, intentUpdate, methodIntent("PATCH"))
	assert.Equal(t, intentDelete, methodIntent("DELETE"))
	assert.Equal(t, intentNone, methodIntent("TRACE"))
}

func TestTokenizeDropsStopWordsAndShortTokens(t *testing.T) {
	tokens := tokenize("Please find the pet with id 42")
	assert.Equal(t, []string{"find", "pet"}, tokens)
}
