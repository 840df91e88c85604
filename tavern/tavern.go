/*
Package tavern provides the food establishment.

PURPOSE:
  Owns the hunger stat (0..100 points) and the menu. An order is a request
  for a menu item: the price is charged and the item's nutrition credited
  to hunger when a server approves it ("serves the dish"). The menu comes
  from town configuration, not code.

SEE ALSO:
  - engine/request.go: Order approval flow
  - factory: Menu construction from town JSON
*/
package tavern

import (
	"context"
	"fmt"

	"github.com/yunhopapisaoko-dot/township/engine"
)

// =============================================================================
// ACCOUNT
// =============================================================================

// Account identifies tavern-owned balances.
type Account string

func (a Account) AccountID() string     { return string(a) }
func (a Account) AccountDomain() string { return "tavern" }

// AccountHunger is the 0..100 satiety stat. Higher is better fed.
const AccountHunger Account = "hunger"

func init() {
	engine.RegisterAccount(AccountHunger)
}

// KindOrder is a server-reviewed food order.
const KindOrder engine.RequestKind = "tavern_order"

// StatCap bounds the hunger stat.
const StatCap = 100

// =============================================================================
// MENU
// =============================================================================

// MenuItem is an orderable dish.
type MenuItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Nutrition int64  `json:"nutrition"`
}

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes the tavern's operations.
type Service struct {
	Ledger engine.Ledger
	Engine *engine.RequestEngine

	menu []MenuItem
	byID map[string]MenuItem
}

func NewService(ledger engine.Ledger, eng *engine.RequestEngine, menu []MenuItem) *Service {
	byID := make(map[string]MenuItem, len(menu))
	for _, item := range menu {
		byID[item.ID] = item
	}
	return &Service{Ledger: ledger, Engine: eng, menu: menu, byID: byID}
}

// Menu returns the orderable items in menu order.
func (s *Service) Menu() []MenuItem {
	out := make([]MenuItem, len(s.menu))
	copy(out, s.menu)
	return out
}

// Hunger returns the actor's current satiety.
func (s *Service) Hunger(ctx context.Context, actorID engine.ActorID) (engine.Amount, error) {
	return s.Ledger.BalanceOf(ctx, actorID, AccountHunger)
}

// Order files an order for a menu item. The price is charged and the
// nutrition credited (capped) when a server approves.
func (s *Service) Order(ctx context.Context, actorID engine.ActorID, itemID, note string) (*engine.Request, error) {
	item, ok := s.byID[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: menu item %s", engine.ErrNotFound, itemID)
	}

	effect := engine.EffectSpec{
		Credits: []engine.StatCredit{
			{
				Account: AccountHunger,
				Amount:  engine.Points(item.Nutrition),
				Cap:     engine.Points(StatCap),
			},
		},
	}

	if note == "" {
		note = item.Name
	}
	return s.Engine.Submit(ctx, actorID, KindOrder, engine.Coins(item.Price), effect, note)
}
