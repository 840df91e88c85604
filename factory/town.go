/*
Package factory provides JSON to Go town configuration conversion.

PURPOSE:
  Converts a JSON town definition into the runtime objects the server
  wires together: access scopes with their staff secrets, the tavern menu,
  the roulette prize table, and the bank's tunables. This enables town
  configuration without code changes - game masters edit JSON, and the
  factory creates the proper Go structs.

WHY JSON?
  - Non-developers can re-theme the town
  - Easy integration with admin tooling
  - Version control for town definitions

JSON SCHEMA:
  {
    "opening_grant": 1000,
    "document_fee": 50,
    "scopes": [
      {"id": "hospital", "name": "St. Mercy",
       "employee_secret": "...", "manager_secret": "..."}
    ],
    "menu": [
      {"id": "stew", "name": "Hearty Stew", "price": 60, "nutrition": 35}
    ],
    "roulette": {
      "categories": [
        {"name": "money", "weight": 10, "prizes": [
          {"id": "jackpot", "label": "Jackpot", "kind": "money", "value": 500}
        ]}
      ]
    }
  }

KEY FEATURES:
  - Validates structure (duplicate IDs, negative prices, bad weights)
  - Sets sensible defaults for tunables
  - Ships a built-in preset town with the 10/20/70 wheel

USAGE:
  town, err := factory.ParseTown(jsonBytes)
  // or
  town, err := factory.ParseTown([]byte(factory.DefaultTownJSON()))

  keeper := access.NewKeeper(town.Scopes, key, ttl)
  table, err := town.OutcomeTable()

SEE ALSO:
  - access: Scope type
  - tavern: MenuItem type
  - engine/draw.go: OutcomeTable construction
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/yunhopapisaoko-dot/township/access"
	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/tavern"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TownJSON is the JSON representation of a town.
type TownJSON struct {
	OpeningGrant int64             `json:"opening_grant,omitempty"`
	DocumentFee  int64             `json:"document_fee,omitempty"`
	Scopes       []ScopeJSON       `json:"scopes"`
	Menu         []tavern.MenuItem `json:"menu"`
	Roulette     RouletteJSON      `json:"roulette"`
}

// ScopeJSON is an establishment with its staff secrets.
type ScopeJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	EmployeeSecret string `json:"employee_secret"`
	ManagerSecret  string `json:"manager_secret"`
}

// RouletteJSON is the wheel configuration.
type RouletteJSON struct {
	Categories []CategoryJSON `json:"categories"`
}

// CategoryJSON is one probability band of the wheel.
type CategoryJSON struct {
	Name   string      `json:"name"`
	Weight int         `json:"weight"`
	Prizes []PrizeJSON `json:"prizes"`
}

// PrizeJSON is one drawable prize.
type PrizeJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Value int64  `json:"value"`
}

// =============================================================================
// TOWN - Parsed configuration
// =============================================================================

// Town holds the validated runtime configuration.
type Town struct {
	OpeningGrant engine.Amount
	DocumentFee  engine.Amount
	Scopes       []access.Scope
	Menu         []tavern.MenuItem

	roulette RouletteJSON
}

// Defaults applied when the JSON omits a tunable.
const (
	DefaultOpeningGrant = 1000
	DefaultDocumentFee  = 50
)

// ParseTown validates a JSON town definition.
func ParseTown(data []byte) (*Town, error) {
	var raw TownJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid town JSON: %w", err)
	}

	if raw.OpeningGrant == 0 {
		raw.OpeningGrant = DefaultOpeningGrant
	}
	if raw.DocumentFee == 0 {
		raw.DocumentFee = DefaultDocumentFee
	}
	if raw.OpeningGrant < 0 {
		return nil, fmt.Errorf("opening_grant must not be negative")
	}
	if raw.DocumentFee < 0 {
		return nil, fmt.Errorf("document_fee must not be negative")
	}

	town := &Town{
		OpeningGrant: engine.Coins(raw.OpeningGrant),
		DocumentFee:  engine.Coins(raw.DocumentFee),
		Menu:         raw.Menu,
		roulette:     raw.Roulette,
	}

	seenScopes := map[string]bool{}
	for _, s := range raw.Scopes {
		if s.ID == "" {
			return nil, fmt.Errorf("scope id is required")
		}
		if seenScopes[s.ID] {
			return nil, fmt.Errorf("duplicate scope id %q", s.ID)
		}
		seenScopes[s.ID] = true
		town.Scopes = append(town.Scopes, access.Scope{
			ID:             s.ID,
			Name:           s.Name,
			EmployeeSecret: s.EmployeeSecret,
			ManagerSecret:  s.ManagerSecret,
		})
	}

	seenItems := map[string]bool{}
	for _, item := range raw.Menu {
		if item.ID == "" {
			return nil, fmt.Errorf("menu item id is required")
		}
		if seenItems[item.ID] {
			return nil, fmt.Errorf("duplicate menu item id %q", item.ID)
		}
		seenItems[item.ID] = true
		if item.Price < 0 {
			return nil, fmt.Errorf("menu item %q: price must not be negative", item.ID)
		}
		if item.Nutrition <= 0 {
			return nil, fmt.Errorf("menu item %q: nutrition must be positive", item.ID)
		}
	}

	// Fail fast on a bad wheel rather than at the first spin.
	if _, err := town.OutcomeTable(); err != nil {
		return nil, fmt.Errorf("roulette table: %w", err)
	}

	return town, nil
}

// OutcomeTable builds the roulette table from the town definition.
func (t *Town) OutcomeTable() (*engine.OutcomeTable, error) {
	var categories []engine.OutcomeCategory
	for _, c := range t.roulette.Categories {
		cat := engine.OutcomeCategory{Name: c.Name, Weight: c.Weight}
		for _, p := range c.Prizes {
			cat.Prizes = append(cat.Prizes, engine.Prize{
				ID:    p.ID,
				Label: p.Label,
				Kind:  p.Kind,
				Value: p.Value,
			})
		}
		categories = append(categories, cat)
	}
	return engine.NewOutcomeTable(categories)
}

// =============================================================================
// PRESET
// =============================================================================

// DefaultTownJSON returns the built-in town: three staffed establishments,
// a small menu, and the classic 10/20/70 wheel.
func DefaultTownJSON() string {
	return `{
  "opening_grant": 1000,
  "document_fee": 50,
  "scopes": [
    {"id": "bank", "name": "First Township Bank",
     "employee_secret": "teller-pass", "manager_secret": "vault-pass"},
    {"id": "hospital", "name": "St. Mercy Hospital",
     "employee_secret": "nurse-pass", "manager_secret": "chief-pass"},
    {"id": "tavern", "name": "The Rusty Tankard",
     "employee_secret": "server-pass", "manager_secret": "keeper-pass"},
    {"id": "roulette", "name": "Golden Wheel Casino",
     "employee_secret": "croupier-pass", "manager_secret": "pit-boss-pass"}
  ],
  "menu": [
    {"id": "bread", "name": "Fresh Bread", "price": 20, "nutrition": 15},
    {"id": "stew", "name": "Hearty Stew", "price": 60, "nutrition": 35},
    {"id": "roast", "name": "Sunday Roast", "price": 120, "nutrition": 60},
    {"id": "feast", "name": "Full Feast", "price": 200, "nutrition": 100}
  ],
  "roulette": {
    "categories": [
      {"name": "money", "weight": 10, "prizes": [
        {"id": "coins-small", "label": "Pouch of Coins", "kind": "money", "value": 100},
        {"id": "coins-large", "label": "Chest of Coins", "kind": "money", "value": 250},
        {"id": "jackpot", "label": "Jackpot", "kind": "money", "value": 500}
      ]},
      {"name": "voucher", "weight": 20, "prizes": [
        {"id": "voucher-meal", "label": "Free Meal Voucher", "kind": "voucher", "value": 1},
        {"id": "voucher-checkup", "label": "Free Checkup Voucher", "kind": "voucher", "value": 1}
      ]},
      {"name": "affliction", "weight": 70, "prizes": [
        {"id": "sprain", "label": "Sprained Ankle", "kind": "affliction", "value": 10},
        {"id": "fever", "label": "Sudden Fever", "kind": "affliction", "value": 20},
        {"id": "food-poisoning", "label": "Food Poisoning", "kind": "affliction", "value": 30}
      ]}
    ]
  }
}`
}
