package features

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/betslip/internal/cart"
	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/message"
	"github.com/alanyoungcy/betslip/internal/notify"
	"github.com/alanyoungcy/betslip/internal/store/memory"
)

const slotKey = "betting-cart"

type cartTestContext struct {
	slots   *memory.SlotStore
	notices *notify.Queue
	store   *cart.Store
	last    []domain.Notice
	message string
}

func (c *cartTestContext) reset() {
	c.slots = memory.NewSlotStore()
	c.notices = notify.NewQueue()
	c.store = cart.New(c.slots, slotKey, cart.WithNotifier(c.notices))
	c.last = nil
	c.message = ""
}

func (c *cartTestContext) drain() {
	if n := c.notices.Drain(); len(n) > 0 {
		c.last = n
	}
}

func (c *cartTestContext) anEmptyCart() error {
	c.store.Load(context.Background())
	return nil
}

func (c *cartTestContext) theSlotHolds(doc *godog.DocString) error {
	return c.slots.Put(context.Background(), slotKey, []byte(doc.Content))
}

func (c *cartTestContext) iAddWager(match, betType, odds string) error {
	_ = c.store.AddItem(context.Background(), cart.Candidate{
		MatchID:  match,
		BetType:  betType,
		Label:    "Local",
		Odds:     cart.RawAmount(odds),
		League:   "La Liga",
		HomeTeam: "Home",
		AwayTeam: "Away",
	})
	c.drain()
	return nil
}

func (c *cartTestContext) iSetTheStakeOfWager(index int, amount string) error {
	_ = c.store.UpdateStake(context.Background(), index, amount)
	c.drain()
	return nil
}

func (c *cartTestContext) iEnterCombinationMode() error {
	c.store.ToggleCombinationMode(context.Background())
	c.drain()
	return nil
}

func (c *cartTestContext) iSelectWager(index int) error {
	c.store.ToggleSelection(context.Background(), index)
	return nil
}

func (c *cartTestContext) iCreateACombination() error {
	_, _ = c.store.CreateCombination(context.Background())
	c.drain()
	return nil
}

func (c *cartTestContext) iRemoveCombination(index int) error {
	combos := c.store.State().Combinations
	if index >= len(combos) {
		return fmt.Errorf("no combination at %d", index)
	}
	c.store.RemoveCombination(context.Background(), combos[index].ID)
	c.drain()
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.store.Clear(context.Background())
	c.drain()
	return nil
}

func (c *cartTestContext) iReloadTheCartFromStorage() error {
	c.store = cart.New(c.slots, slotKey, cart.WithNotifier(c.notices))
	c.store.Load(context.Background())
	c.drain()
	return nil
}

func (c *cartTestContext) iBuildTheMessage() error {
	f := message.NewFormatter("", c.notices)
	c.message, _ = f.Build(context.Background(), c.store.State(), message.Raw)
	c.drain()
	return nil
}

func (c *cartTestContext) theCartHoldsWagers(n int) error {
	if got := c.store.ItemCount(); got != n {
		return fmt.Errorf("expected %d wagers, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theCartHoldsCombinations(n int) error {
	if got := len(c.store.State().Combinations); got != n {
		return fmt.Errorf("expected %d combinations, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theLastNoticeIs(kind, text string) error {
	if len(c.last) == 0 {
		return fmt.Errorf("no notice was raised")
	}
	n := c.last[len(c.last)-1]
	if string(n.Kind) != kind || n.Message != text {
		return fmt.Errorf("expected %s %q, got %s %q", kind, text, n.Kind, n.Message)
	}
	return nil
}

func (c *cartTestContext) wagerHasStake(index int, amount string) error {
	items := c.store.State().Items
	if index >= len(items) {
		return fmt.Errorf("no wager at %d", index)
	}
	want := decimal.RequireFromString(amount)
	if !items[index].Stake.Equal(want) {
		return fmt.Errorf("expected stake %s, got %s", want, items[index].Stake)
	}
	return nil
}

func (c *cartTestContext) combinationHasMembersAndOdds(index, members int, odds string) error {
	combos := c.store.State().Combinations
	if index >= len(combos) {
		return fmt.Errorf("no combination at %d", index)
	}
	combo := combos[index]
	if len(combo.Members) != members {
		return fmt.Errorf("expected %d members, got %d", members, len(combo.Members))
	}
	if want := decimal.RequireFromString(odds); !combo.CombinedOdds.Equal(want) {
		return fmt.Errorf("expected combined odds %s, got %s", want, combo.CombinedOdds)
	}
	return nil
}

func (c *cartTestContext) everyWagerIsGroupedAndUnselected() error {
	for i, it := range c.store.State().Items {
		if !it.Grouped() || it.Selected {
			return fmt.Errorf("wager %d: grouped=%v selected=%v", i, it.Grouped(), it.Selected)
		}
	}
	return nil
}

func (c *cartTestContext) noWagerIsGrouped() error {
	for i, it := range c.store.State().Items {
		if it.Grouped() {
			return fmt.Errorf("wager %d still grouped under %s", i, it.GroupID)
		}
	}
	return nil
}

func (c *cartTestContext) combinationModeIsOff() error {
	if c.store.CombinationMode() {
		return fmt.Errorf("combination mode is still on")
	}
	return nil
}

func (c *cartTestContext) theMessageIsEmpty() error {
	if c.message != "" {
		return fmt.Errorf("expected no message, got %q", c.message)
	}
	return nil
}

func (c *cartTestContext) theMessageContains(text string) error {
	if !strings.Contains(c.message, text) {
		return fmt.Errorf("message %q does not contain %q", c.message, text)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^the slot holds:$`, tc.theSlotHolds)

	// When steps
	ctx.Step(`^I add wager "([^"]*)" "([^"]*)" at odds "([^"]*)"$`, tc.iAddWager)
	ctx.Step(`^I set the stake of wager (\d+) to "([^"]*)"$`, tc.iSetTheStakeOfWager)
	ctx.Step(`^I enter combination mode$`, tc.iEnterCombinationMode)
	ctx.Step(`^I select wager (\d+)$`, tc.iSelectWager)
	ctx.Step(`^I create a combination$`, tc.iCreateACombination)
	ctx.Step(`^I remove combination (\d+)$`, tc.iRemoveCombination)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)
	ctx.Step(`^I reload the cart from storage$`, tc.iReloadTheCartFromStorage)
	ctx.Step(`^I build the message$`, tc.iBuildTheMessage)

	// Then steps
	ctx.Step(`^the cart holds (\d+) wagers$`, tc.theCartHoldsWagers)
	ctx.Step(`^the cart holds (\d+) combinations$`, tc.theCartHoldsCombinations)
	ctx.Step(`^the last notice is a "([^"]*)" saying "([^"]*)"$`, tc.theLastNoticeIs)
	ctx.Step(`^wager (\d+) has stake "([^"]*)"$`, tc.wagerHasStake)
	ctx.Step(`^combination (\d+) has (\d+) members and combined odds "([^"]*)"$`, tc.combinationHasMembersAndOdds)
	ctx.Step(`^every wager is grouped and unselected$`, tc.everyWagerIsGroupedAndUnselected)
	ctx.Step(`^no wager is grouped$`, tc.noWagerIsGrouped)
	ctx.Step(`^combination mode is off$`, tc.combinationModeIsOff)
	ctx.Step(`^the message is empty$`, tc.theMessageIsEmpty)
	ctx.Step(`^the message contains "([^"]*)"$`, tc.theMessageContains)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
