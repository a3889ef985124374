package domain

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cards(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", prefix, i)
	}
	return out
}

func testCatalog(responses int) *Catalog {
	return &Catalog{
		Packs: map[string]*Pack{
			"base": {
				Name:      "Base",
				Icon:      "🃏",
				Prompts:   []string{"Why is ______ so loud?", "Nobody expects ______.", "I brought ______ to the picnic."},
				Prompts2:  []string{"First ______, then ______."},
				Responses: cards("base", responses),
			},
			"extra": {
				Name:      "Extra",
				Prompts:   []string{"My secret talent is ______."},
				Prompts3:  []string{"______ plus ______ equals ______."},
				Responses: cards("extra", 4),
			},
		},
		Order:   []string{"base", "extra"},
		Default: []string{"base"},
	}
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestBuildDecks(t *testing.T) {
	catalog := testCatalog(10)

	t.Run("concatenates selected packs", func(t *testing.T) {
		decks := BuildDecks(catalog, []string{"base", "extra"})
		assert.Len(t, decks.Single, 4)
		assert.Len(t, decks.Double, 1)
		assert.Len(t, decks.Triple, 1)
		want := append(cards("base", 10), cards("extra", 4)...)
		if diff := cmp.Diff(sorted(want), sorted(decks.Responses)); diff != "" {
			t.Errorf("responses mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("skips unknown packs", func(t *testing.T) {
		decks := BuildDecks(catalog, []string{"nope", "base"})
		assert.Len(t, decks.Single, 3)
		assert.Empty(t, decks.Triple)
		assert.Len(t, decks.Responses, 10)
	})

	t.Run("no packs gives empty decks", func(t *testing.T) {
		decks := BuildDecks(catalog, nil)
		assert.Empty(t, decks.Single)
		assert.Empty(t, decks.Responses)
	})
}

func TestCatalogKnownAndIcons(t *testing.T) {
	catalog := testCatalog(1)
	assert.Equal(t, []string{"extra", "base"}, catalog.Known([]string{"extra", "missing", "base", "extra"}))
	assert.Equal(t, "🃏 📦", catalog.Icons([]string{"base", "extra"}))
}

func TestExpandBlanks(t *testing.T) {
	tests := []struct {
		prompt string
		n      int
		want   string
	}{
		{"Why is ______ so loud?", 1, "Why is ______ so loud?"},
		{"Why is ______ so loud?", 2, "Why is ______ + ______ so loud?"},
		{"Why is ______ so loud?", 3, "Why is ______ + ______ + ______ so loud?"},
		{"No blank here.", 2, "No blank here."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandBlanks(tt.prompt, tt.n))
	}
}

func TestDrawPrompt(t *testing.T) {
	catalog := testCatalog(10)

	t.Run("uses combo piles first", func(t *testing.T) {
		room := NewRoom("ABCD", DisplayShared, catalog, []string{"base", "extra"}, 5)
		assert.Equal(t, "______ plus ______ equals ______.", room.DrawPrompt(3))
		assert.Equal(t, "First ______, then ______.", room.DrawPrompt(2))
	})

	t.Run("falls back to expanded single prompt", func(t *testing.T) {
		room := NewRoom("ABCD", DisplayShared, catalog, []string{"base"}, 5)
		prompt := room.DrawPrompt(3)
		assert.Equal(t, 3, strings.Count(prompt, Blank))
		assert.Len(t, room.Decks.Single, 2)
	})

	t.Run("reshuffles single prompts when exhausted", func(t *testing.T) {
		room := NewRoom("ABCD", DisplayShared, catalog, []string{"base"}, 5)
		seen := map[string]int{}
		for i := 0; i < 6; i++ {
			seen[room.DrawPrompt(1)]++
		}
		assert.Len(t, seen, 3)
		for _, n := range seen {
			assert.Equal(t, 2, n)
		}
	})

	t.Run("empty catalog draws nothing", func(t *testing.T) {
		room := NewRoom("ABCD", DisplayShared, catalog, nil, 5)
		assert.Equal(t, "", room.DrawPrompt(1))
	})
}

func TestDealUpTo(t *testing.T) {
	t.Run("small deck reshuffles and never overfills", func(t *testing.T) {
		catalog := &Catalog{Packs: map[string]*Pack{
			"tiny": {Prompts: []string{"______?"}, Responses: cards("r", 5)},
		}}
		room := NewRoom("ABCD", DisplayShared, catalog, []string{"tiny"}, 5)
		players := []*Player{
			NewPlayer("p1", "c1", "Ann", "🦊", "t1"),
			NewPlayer("p2", "c2", "Bob", "🐸", "t2"),
			NewPlayer("p3", "c3", "Cat", "🐼", "t3"),
			NewPlayer("p4", "c4", "Dan", "🦁", "t4"),
		}

		reshuffles := 0
		for deal := 0; deal < 2; deal++ {
			for _, p := range players {
				reshuffles += room.DealUpTo(p, 7)
			}
		}

		assert.GreaterOrEqual(t, reshuffles, 1)
		for _, p := range players {
			assert.Len(t, p.Hand, 7)
		}
	})

	t.Run("empty response set stops", func(t *testing.T) {
		catalog := &Catalog{Packs: map[string]*Pack{"none": {Prompts: []string{"______?"}}}}
		room := NewRoom("ABCD", DisplayShared, catalog, []string{"none"}, 5)
		p := NewPlayer("p1", "c1", "Ann", "🦊", "t1")
		assert.Equal(t, 0, room.DealUpTo(p, 7))
		assert.Empty(t, p.Hand)
	})

	t.Run("cards leave the deck", func(t *testing.T) {
		room := NewRoom("ABCD", DisplayShared, testCatalog(20), []string{"base"}, 5)
		p := NewPlayer("p1", "c1", "Ann", "🦊", "t1")
		require.Equal(t, 0, room.DealUpTo(p, 7))
		assert.Len(t, room.Decks.Responses, 13)
		for _, c := range p.Hand {
			assert.NotContains(t, room.Decks.Responses, c)
		}
	})
}
