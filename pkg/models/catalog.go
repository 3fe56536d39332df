package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Card is a single learnable muscle fact
type Card struct {
	ID     string `json:"id" yaml:"id"`
	Prompt string `json:"prompt" yaml:"prompt"`
	Answer string `json:"answer" yaml:"answer"`
	Topic  string `json:"topic" yaml:"topic"`
}

// Catalog is the fixed, ordered list of cards. The position of a card in
// the catalog is what the compact progress format stores instead of its id,
// so the order must only ever be appended to.
type Catalog struct {
	cards []Card
	index map[string]int
}

// NewCatalog builds a catalog, rejecting empty and duplicate ids.
func NewCatalog(cards []Card) (*Catalog, error) {
	c := &Catalog{
		cards: make([]Card, 0, len(cards)),
		index: make(map[string]int, len(cards)),
	}
	for i, card := range cards {
		card.ID = strings.TrimSpace(card.ID)
		if card.ID == "" {
			return nil, fmt.Errorf("card %d: %w", i, ErrEmptyCardID)
		}
		if _, exists := c.index[card.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCard, card.ID)
		}
		c.index[card.ID] = len(c.cards)
		c.cards = append(c.cards, card)
	}
	return c, nil
}

// CatalogFromIDs builds a catalog of bare card ids.
func CatalogFromIDs(ids ...string) (*Catalog, error) {
	cards := make([]Card, len(ids))
	for i, id := range ids {
		cards[i] = Card{ID: id}
	}
	return NewCatalog(cards)
}

// Len returns the number of cards.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// IndexOf returns the catalog position of a card id.
func (c *Catalog) IndexOf(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// IDAt returns the card id at position i.
func (c *Catalog) IDAt(i int) (string, bool) {
	if i < 0 || i >= len(c.cards) {
		return "", false
	}
	return c.cards[i].ID, true
}

// Has reports whether id belongs to the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Card returns the card with the given id.
func (c *Catalog) Card(id string) (Card, bool) {
	i, ok := c.index[id]
	if !ok {
		return Card{}, false
	}
	return c.cards[i], true
}

// Cards returns a copy of the cards in catalog order.
func (c *Catalog) Cards() []Card {
	out := make([]Card, len(c.cards))
	copy(out, c.cards)
	return out
}

// IDs returns the card ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.cards))
	for i, card := range c.cards {
		ids[i] = card.ID
	}
	return ids
}

// Fingerprint identifies the catalog ordering as "<len>.<hash>", the hash
// covering the ids in order. Two catalogs with the same ids in the same
// order share a fingerprint.
func (c *Catalog) Fingerprint() string {
	return fmt.Sprintf("%d.%s", len(c.cards), c.prefixHash(len(c.cards)))
}

// Extends reports whether progress indexed against the catalog that produced
// fingerprint fp is still valid here: the same ids in the same order, with any
// new cards only appended. The bare hash form without a length must match exactly.
func (c *Catalog) Extends(fp string) bool {
	count, hash, ok := strings.Cut(fp, ".")
	if !ok {
		return fp == c.prefixHash(len(c.cards))
	}
	n, err := strconv.Atoi(count)
	if err != nil || n < 0 || n > len(c.cards) || strconv.Itoa(n) != count {
		return false
	}
	return hash == c.prefixHash(n)
}

func (c *Catalog) prefixHash(n int) string {
	ids := make([]string, n)
	for i, card := range c.cards[:n] {
		ids[i] = card.ID
	}
	sum := sha256.Sum256([]byte(strings.Join(ids, "\n")))
	return hex.EncodeToString(sum[:4])
}
