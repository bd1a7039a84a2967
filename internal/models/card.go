package models

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type Suit string
type Rank string

const (
	Clubs    Suit = "CLUBS"
	Diamonds Suit = "DIAMONDS"
	Hearts   Suit = "HEARTS"
	Spades   Suit = "SPADES"
)

const (
	Two   Rank = "TWO"
	Three Rank = "THREE"
	Four  Rank = "FOUR"
	Five  Rank = "FIVE"
	Six   Rank = "SIX"
	Seven Rank = "SEVEN"
	Eight Rank = "EIGHT"
	Nine  Rank = "NINE"
	Ten   Rank = "TEN"
	Jack  Rank = "JACK"
	Queen Rank = "QUEEN"
	King  Rank = "KING"
	Ace   Rank = "ACE"
)

// Suits and Ranks list every value in deck order.
var (
	Suits = []Suit{Clubs, Diamonds, Hearts, Spades}
	Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
)

var rankValues = map[Rank]int{
	Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7, Eight: 8,
	Nine: 9, Ten: 10, Jack: 11, Queen: 12, King: 13, Ace: 14,
}

var rankShort = map[Rank]string{
	Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7", Eight: "8",
	Nine: "9", Ten: "T", Jack: "J", Queen: "Q", King: "K", Ace: "A",
}

// Value returns the numeric rank used for comparisons; the Ace is high (14).
// The wheel straight treats it as 1, handled by the evaluator.
func (r Rank) Value() int {
	return rankValues[r]
}

var rankNames = map[Rank]string{
	Two: "Two", Three: "Three", Four: "Four", Five: "Five", Six: "Six",
	Seven: "Seven", Eight: "Eight", Nine: "Nine", Ten: "Ten",
	Jack: "Jack", Queen: "Queen", King: "King", Ace: "Ace",
}

// Name returns the display name used in hand descriptions, e.g. "Ace".
func (r Rank) Name() string {
	return rankNames[r]
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", rankShort[c.Rank], string(c.Suit[0]+32))
}

// ErrDeckEmpty is returned when drawing from an exhausted deck. It should be
// unreachable for tables of up to 10 players with a 5-card board.
var ErrDeckEmpty = errors.New("deck is empty")

// Deck is an owned, mutable draw pile of the 52 distinct cards.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck returns a full 52-card deck, already shuffled.
func NewDeck() *Deck {
	d := &Deck{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	d.Reset()
	return d
}

func (d *Deck) Reset() {
	d.cards = make([]Card, 0, 52)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}
	d.Shuffle()
}

func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckEmpty
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

func (d *Deck) Remaining() int {
	return len(d.cards)
}
