package domain

import (
	"math/rand"
	"strings"
)

const (
	// Blank is the placeholder players fill with response cards.
	Blank = "______"

	blankSeparator = " + "
)

// Pack is one selectable card pack.
type Pack struct {
	Name        string   `yaml:"name"`
	Icon        string   `yaml:"icon"`
	Description string   `yaml:"description"`
	Prompts     []string `yaml:"prompts"`
	Prompts2    []string `yaml:"prompts_2"`
	Prompts3    []string `yaml:"prompts_3"`
	Responses   []string `yaml:"responses"`
}

// CardCount is the number of cards of every kind in the pack.
func (p *Pack) CardCount() int {
	return len(p.Prompts) + len(p.Prompts2) + len(p.Prompts3) + len(p.Responses)
}

// Catalog is the set of packs a room can pick from.
type Catalog struct {
	Packs   map[string]*Pack
	Order   []string // Display order of pack ids
	Default []string // Packs used when a room selects none
}

// Known filters ids down to packs present in the catalog, dropping duplicates.
func (c *Catalog) Known(ids []string) []string {
	known := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.Packs[id]; ok && !seen[id] {
			seen[id] = true
			known = append(known, id)
		}
	}
	return known
}

// Icons returns the icons of the given packs joined by spaces.
func (c *Catalog) Icons(ids []string) string {
	icons := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.Packs[id]; ok && p.Icon != "" {
			icons = append(icons, p.Icon)
		} else {
			icons = append(icons, "📦")
		}
	}
	return strings.Join(icons, " ")
}

// Decks holds the draw piles of a room. Cards are drawn from the end.
type Decks struct {
	Single    []string `json:"single"`
	Double    []string `json:"double"`
	Triple    []string `json:"triple"`
	Responses []string `json:"responses"`
}

// BuildDecks concatenates the cards of every selected pack and shuffles each pile.
// Unknown pack ids are skipped.
func BuildDecks(catalog *Catalog, packIDs []string) Decks {
	var single, double, triple, responses []string
	for _, id := range packIDs {
		pack, ok := catalog.Packs[id]
		if !ok {
			continue
		}
		single = append(single, pack.Prompts...)
		double = append(double, pack.Prompts2...)
		triple = append(triple, pack.Prompts3...)
		responses = append(responses, pack.Responses...)
	}

	return Decks{
		Single:    shuffled(single),
		Double:    shuffled(double),
		Triple:    shuffled(triple),
		Responses: shuffled(responses),
	}
}

// ExpandBlanks turns the first blank of a single-blank prompt into n blanks.
func ExpandBlanks(prompt string, n int) string {
	if n <= 1 {
		return prompt
	}
	blanks := make([]string, n)
	for i := range blanks {
		blanks[i] = Blank
	}
	return strings.Replace(prompt, Blank, strings.Join(blanks, blankSeparator), 1)
}

// DrawPrompt pops a prompt suited to a round that needs cardsRequired cards.
// Combo rounds fall back to an expanded single prompt when their own pile is empty.
func (r *Room) DrawPrompt(cardsRequired int) string {
	switch {
	case cardsRequired == 3 && len(r.Decks.Triple) > 0:
		return pop(&r.Decks.Triple)
	case cardsRequired == 2 && len(r.Decks.Double) > 0:
		return pop(&r.Decks.Double)
	}

	if len(r.Decks.Single) == 0 {
		r.Decks.Single = shuffled(r.OriginalPrompts)
	}
	if len(r.Decks.Single) == 0 {
		return ""
	}
	return ExpandBlanks(pop(&r.Decks.Single), cardsRequired)
}

// DealUpTo fills the player's hand up to target cards and returns how many times the
// response pile was rebuilt from the room's original responses along the way.
func (r *Room) DealUpTo(p *Player, target int) int {
	reshuffles := 0
	for len(p.Hand) < target {
		if len(r.Decks.Responses) == 0 {
			if len(r.OriginalResponses) == 0 {
				return reshuffles
			}
			r.Decks.Responses = shuffled(r.OriginalResponses)
			reshuffles++
		}
		p.Hand = append(p.Hand, pop(&r.Decks.Responses))
	}
	return reshuffles
}

func shuffled(cards []string) []string {
	out := make([]string, len(cards))
	copy(out, cards)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func pop(pile *[]string) string {
	s := *pile
	card := s[len(s)-1]
	*pile = s[:len(s)-1]
	return card
}
