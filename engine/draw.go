/*
draw.go - Weighted random outcome drawing

PURPOSE:
  Draws a prize from a table of weighted categories. The category is picked
  proportionally to its weight; the prize is picked uniformly within the
  category. Used by the roulette, but knows nothing about coins or stats -
  it returns whatever prizes the table was built with.

DETERMINISM:
  Draw takes the random source as an argument, so a fixed seed reproduces
  the exact sequence of outcomes. Tests rely on this.

EMPTY CATEGORIES:
  A category with no prizes is excluded from the weight space when the
  table is built, not skipped at draw time. A drawn category always has at
  least one prize.

WEIGHTS:
  Weights need not sum to 100; the draw normalizes over the total. The
  shipped table uses 10 (money) / 20 (voucher) / 70 (affliction).

SEE ALSO:
  - factory: builds tables from JSON configuration
  - roulette: applies drawn prizes
*/
package engine

import (
	"errors"
	"math/rand"
)

// =============================================================================
// PRIZES AND CATEGORIES
// =============================================================================

// Prize is a single drawable entry. Kind and Value are interpreted by the
// feature that owns the table (money pays out coins, afflictions hit health).
type Prize struct {
	ID    string
	Label string
	Kind  string
	Value int64
}

// OutcomeCategory groups prizes under one probability band.
type OutcomeCategory struct {
	Name   string
	Weight int
	Prizes []Prize
}

// Outcome is the result of a single draw.
type Outcome struct {
	Category string
	Prize    Prize
}

// =============================================================================
// OUTCOME TABLE
// =============================================================================

var (
	ErrEmptyTable    = errors.New("outcome table has no drawable categories")
	ErrInvalidWeight = errors.New("category weight must be positive")
)

// OutcomeTable is an ordered set of weighted categories, validated at
// construction so drawing can never fail.
type OutcomeTable struct {
	categories  []OutcomeCategory
	totalWeight int
}

// NewOutcomeTable builds a table from categories in a fixed, stable order.
// Categories with no prizes are dropped; a non-positive weight on a
// drawable category is an error; a table with nothing drawable is an error.
func NewOutcomeTable(categories []OutcomeCategory) (*OutcomeTable, error) {
	t := &OutcomeTable{}
	for _, c := range categories {
		if len(c.Prizes) == 0 {
			continue
		}
		if c.Weight <= 0 {
			return nil, ErrInvalidWeight
		}
		t.categories = append(t.categories, c)
		t.totalWeight += c.Weight
	}
	if len(t.categories) == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// Categories returns the drawable categories in draw order.
func (t *OutcomeTable) Categories() []OutcomeCategory {
	out := make([]OutcomeCategory, len(t.categories))
	copy(out, t.categories)
	return out
}

// TotalWeight returns the full probability space.
func (t *OutcomeTable) TotalWeight() int {
	return t.totalWeight
}

// Draw picks a category proportionally to its weight, then a prize
// uniformly within it.
func (t *OutcomeTable) Draw(rng *rand.Rand) Outcome {
	r := rng.Intn(t.totalWeight)
	for _, c := range t.categories {
		if r < c.Weight {
			return Outcome{
				Category: c.Name,
				Prize:    c.Prizes[rng.Intn(len(c.Prizes))],
			}
		}
		r -= c.Weight
	}
	// Unreachable: r < totalWeight and the bands cover [0, totalWeight).
	last := t.categories[len(t.categories)-1]
	return Outcome{Category: last.Name, Prize: last.Prizes[0]}
}
