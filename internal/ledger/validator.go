package ledger

import (
	"context"
	"strings"
	"time"

	"fleetledger/internal/core"
)

// MaxAgeMonths bounds how far back a transaction date may lie.
const MaxAgeMonths = 12

// Validator enforces the admission rules of a transaction before it is
// persisted. It has no side effects besides the resolver lookups.
type Validator struct {
	resolver Resolver
	now      Clock
}

func NewValidator(resolver Resolver, clock Clock) *Validator {
	if clock == nil {
		clock = time.Now
	}
	return &Validator{resolver: resolver, now: clock}
}

// ValidateCreate checks a new transaction and returns it normalized, with
// its month derived from the date. Checks short-circuit in this order:
// vehicle, amount, date not in the future, date not too old, employee,
// then the optional document references and the transaction type.
func (v *Validator) ValidateCreate(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	in = in.Normalize()

	if err := v.checkVehicle(ctx, in.VehicleID); err != nil {
		return core.Transaction{}, err
	}
	if err := checkAmount(in.Amount); err != nil {
		return core.Transaction{}, err
	}
	if err := v.checkDate(in.Date); err != nil {
		return core.Transaction{}, err
	}
	refs := []struct {
		entity string
		id     *string
		exists func(context.Context, string) (bool, error)
	}{
		{core.EntityEmployee, in.EmployeeID, v.resolver.EmployeeExists},
		{core.EntityInvoice, in.InvoiceID, v.resolver.InvoiceExists},
		{core.EntityPurchaseOrder, in.PurchaseOrderID, v.resolver.PurchaseOrderExists},
		{core.EntityQuote, in.QuoteID, v.resolver.QuoteExists},
	}
	for _, ref := range refs {
		if err := checkRef(ctx, ref.entity, ref.id, ref.exists); err != nil {
			return core.Transaction{}, err
		}
	}
	if !in.Type.IsValid() {
		return core.Transaction{}, &core.RangeError{Message: core.MsgInvalidType}
	}

	return core.Transaction{
		VehicleID:       in.VehicleID,
		Type:            in.Type,
		Category:        in.Category,
		Amount:          in.Amount,
		Date:            in.Date,
		Month:           core.MonthOf(in.Date.Time),
		Description:     in.Description,
		EmployeeID:      in.EmployeeID,
		InvoiceID:       in.InvoiceID,
		PurchaseOrderID: in.PurchaseOrderID,
		QuoteID:         in.QuoteID,
	}, nil
}

// ValidateUpdate applies patch on top of current. Only supplied fields are
// checked; a changed date passes the same window check as a create and
// re-derives the month.
func (v *Validator) ValidateUpdate(ctx context.Context, current core.Transaction, patch core.TransactionPatch) (core.Transaction, error) {
	next := current

	if patch.VehicleID != nil {
		id := strings.TrimSpace(*patch.VehicleID)
		if err := v.checkVehicle(ctx, id); err != nil {
			return core.Transaction{}, err
		}
		next.VehicleID = id
	}
	if patch.Amount != nil {
		if err := checkAmount(*patch.Amount); err != nil {
			return core.Transaction{}, err
		}
		next.Amount = *patch.Amount
	}
	if patch.Date != nil {
		if err := v.checkDate(*patch.Date); err != nil {
			return core.Transaction{}, err
		}
		if !patch.Date.Equal(current.Date) {
			next.Date = *patch.Date
			next.Month = core.MonthOf(patch.Date.Time)
		}
	}

	refs := []struct {
		entity string
		ref    core.OptionalRef
		exists func(context.Context, string) (bool, error)
		target **string
	}{
		{core.EntityEmployee, patch.EmployeeID, v.resolver.EmployeeExists, &next.EmployeeID},
		{core.EntityInvoice, patch.InvoiceID, v.resolver.InvoiceExists, &next.InvoiceID},
		{core.EntityPurchaseOrder, patch.PurchaseOrderID, v.resolver.PurchaseOrderExists, &next.PurchaseOrderID},
		{core.EntityQuote, patch.QuoteID, v.resolver.QuoteExists, &next.QuoteID},
	}
	for _, r := range refs {
		if !r.ref.Set {
			continue
		}
		id := r.ref.Value
		if id != nil {
			id = core.Ref(*id)
		}
		if err := checkRef(ctx, r.entity, id, r.exists); err != nil {
			return core.Transaction{}, err
		}
		*r.target = id
	}

	if patch.Type != nil {
		if !patch.Type.IsValid() {
			return core.Transaction{}, &core.RangeError{Message: core.MsgInvalidType}
		}
		next.Type = *patch.Type
	}
	if patch.Category != nil {
		next.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	return next, nil
}

// Today returns the validator's current calendar date.
func (v *Validator) Today() core.Date {
	return core.DateOf(v.now())
}

func (v *Validator) checkVehicle(ctx context.Context, id string) error {
	ok, err := v.resolver.VehicleExists(ctx, id)
	if err != nil {
		return core.NewStorageError("resolve vehicle", err)
	}
	if !ok {
		return &core.ReferentialError{Entity: core.EntityVehicle, ID: id}
	}
	return nil
}

func checkAmount(m core.Money) error {
	if !m.IsPositive() {
		return &core.RangeError{Message: core.MsgAmountNotPositive}
	}
	return nil
}

func (v *Validator) checkDate(d core.Date) error {
	if d.IsZero() {
		return &core.RangeError{Message: "Transaction date is required"}
	}
	today := v.Today()
	if d.After(today) {
		return &core.RangeError{Message: core.MsgDateInFuture}
	}
	earliest := today.AddMonths(-MaxAgeMonths)
	if d.Before(earliest) {
		return &core.RangeError{Message: core.MsgDateTooOld}
	}
	return nil
}

func checkRef(ctx context.Context, entity string, id *string, exists func(context.Context, string) (bool, error)) error {
	if id == nil {
		return nil
	}
	ok, err := exists(ctx, *id)
	if err != nil {
		return core.NewStorageError("resolve "+strings.ToLower(entity), err)
	}
	if !ok {
		return &core.ReferentialError{Entity: entity, ID: *id}
	}
	return nil
}
