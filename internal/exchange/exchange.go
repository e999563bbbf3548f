// Package exchange runs redeem and swap operations as single atomic units
// across the listing registry, the account ledger and the transaction log.
//
// Each unit is one database transaction. The database is opened with
// immediate transaction locking, so units serialize at begin; inside a unit
// the item transition is a compare-and-swap on its state and debits are
// guarded against overdraw. Any failure rolls the whole unit back.
package exchange

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
)

// Operation names an exchange kind.
type Operation string

// Exchange operations.
const (
	OpRedeem Operation = "redeem"
	OpSwap   Operation = "swap"
)

// Result describes a committed exchange.
type Result struct {
	Operation    Operation           `json:"operation"`
	Item         *model.Item         `json:"item"`
	Transactions []model.Transaction `json:"transactions"`
	Balance      int                 `json:"balance"`
}

// Coordinator orchestrates exchanges. It is safe for concurrent use.
type Coordinator struct {
	db     *sqlx.DB
	logger *slog.Logger

	// failpoint, when set, is called at named stages inside a unit; a
	// returned error aborts the unit. Tests use it to check rollback.
	failpoint func(stage string) error
}

// New creates a Coordinator. A nil logger falls back to slog.Default().
func New(db *sqlx.DB, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{db: db, logger: logger}
}

// Redeem lets buyerID spend points on an available item owned by someone
// else. The buyer is debited and the owner credited by the item's cost, the
// item becomes redeemed, and a redeem_spent/redeem_earned pair is logged.
func (c *Coordinator) Redeem(ctx context.Context, buyerID, itemID int64) (*Result, error) {
	var res *Result
	err := c.run(ctx, OpRedeem, buyerID, itemID, func(tx *sqlx.Tx) error {
		item, ownerID, err := store.GetForExchange(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !item.Exchangeable() {
			return notAvailable(item)
		}
		if ownerID == buyerID {
			return model.Errorf(model.KindForbidden, "cannot redeem your own listing")
		}

		cost := item.PointCost
		balance, err := store.GetBalance(ctx, tx, buyerID)
		if err != nil {
			return err
		}
		if balance < cost {
			return model.Errorf(model.KindInsufficientPoints,
				"balance %d is below the item cost of %d points", balance, cost)
		}

		if err := store.Debit(ctx, tx, buyerID, cost); err != nil {
			return err
		}
		if err := store.Credit(ctx, tx, ownerID, cost); err != nil {
			return err
		}
		if err := c.fail("ledger"); err != nil {
			return err
		}
		if err := transition(store.MarkRedeemed(ctx, tx, itemID)); err != nil {
			return err
		}
		if err := c.fail("state"); err != nil {
			return err
		}

		spent, err := store.RecordTransaction(ctx, tx, buyerID, itemID, model.TxRedeemSpent, -cost)
		if err != nil {
			return err
		}
		earned, err := store.RecordTransaction(ctx, tx, ownerID, itemID, model.TxRedeemEarned, cost)
		if err != nil {
			return err
		}
		if err := c.fail("log"); err != nil {
			return err
		}

		res, err = c.result(ctx, tx, OpRedeem, buyerID, itemID, spent, earned)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("item redeemed",
		"item", itemID, "buyer", buyerID, "owner", res.Item.OwnerID, "points", res.Item.PointCost)
	return res, nil
}

// Swap marks an available item as exchanged off-platform and rewards its
// owner with the item's cost. Only the owner or an admin may swap. The reward
// is a pure credit with no matching debit.
func (c *Coordinator) Swap(ctx context.Context, actorID, itemID int64) (*Result, error) {
	var res *Result
	err := c.run(ctx, OpSwap, actorID, itemID, func(tx *sqlx.Tx) error {
		item, ownerID, err := store.GetForExchange(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !item.Exchangeable() {
			return notAvailable(item)
		}
		if actorID != ownerID {
			actor, err := store.GetUser(ctx, tx, actorID)
			if err != nil {
				return err
			}
			if actor == nil || actor.DeletedAt != nil || !actor.IsAdmin() {
				return model.Errorf(model.KindForbidden, "only the owner can swap item %d", itemID)
			}
		}

		reward := item.PointCost
		if err := store.Credit(ctx, tx, ownerID, reward); err != nil {
			return err
		}
		if err := c.fail("ledger"); err != nil {
			return err
		}
		if err := transition(store.MarkSwapped(ctx, tx, itemID)); err != nil {
			return err
		}
		if err := c.fail("state"); err != nil {
			return err
		}

		received, err := store.RecordTransaction(ctx, tx, ownerID, itemID, model.TxSwapReceived, reward)
		if err != nil {
			return err
		}
		if err := c.fail("log"); err != nil {
			return err
		}

		res, err = c.result(ctx, tx, OpSwap, ownerID, itemID, received)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("item swapped",
		"item", itemID, "actor", actorID, "owner", res.Item.OwnerID, "points", res.Item.PointCost)
	return res, nil
}

// run executes fn as one transaction and normalizes its error. Typed errors
// from precondition checks pass through; anything else is an internal
// failure, logged here, with the unit already rolled back.
func (c *Coordinator) run(ctx context.Context, op Operation, actorID, itemID int64, fn func(tx *sqlx.Tx) error) error {
	err := store.WithTx(ctx, c.db, fn)
	if err == nil {
		return nil
	}

	var typed *model.Error
	if errors.As(err, &typed) && typed.Kind != model.KindInternal {
		c.logger.Info("exchange rejected",
			"op", op, "actor", actorID, "item", itemID, "kind", typed.Kind, "detail", typed.Detail)
		return err
	}

	c.logger.Error("exchange failed",
		"op", op, "actor", actorID, "item", itemID, "error", err)
	if typed != nil {
		return err
	}
	return model.Internal(string(op)+" could not be completed", err)
}

func (c *Coordinator) result(ctx context.Context, tx *sqlx.Tx, op Operation, balanceOf, itemID int64, txIDs ...int64) (*Result, error) {
	item, err := store.GetItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	res := &Result{Operation: op, Item: item}
	for _, id := range txIDs {
		t, err := store.GetTransaction(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		res.Transactions = append(res.Transactions, *t)
	}
	if res.Balance, err = store.GetBalance(ctx, tx, balanceOf); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Coordinator) fail(stage string) error {
	if c.failpoint == nil {
		return nil
	}
	return c.failpoint(stage)
}

func notAvailable(item *model.Item) error {
	if item.State == model.ItemStatePending {
		return model.Errorf(model.KindItemNotAvailable, "item %d is awaiting approval", item.ID)
	}
	return model.Errorf(model.KindItemNotAvailable, "item %d is already %s", item.ID, item.State)
}

// transition maps a lost compare-and-swap on the item state to ItemNotAvailable.
func transition(err error) error {
	if errors.Is(err, model.ErrInvalidState) {
		var e *model.Error
		errors.As(err, &e)
		return &model.Error{Kind: model.KindItemNotAvailable, Detail: e.Detail, Err: err}
	}
	return err
}
