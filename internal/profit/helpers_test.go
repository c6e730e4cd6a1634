package profit

import (
	"testing"

	"fleetledger/internal/core"
)

func tx(vehicle string, typ core.TransactionType, cents int64, date core.Date) core.Transaction {
	return core.Transaction{
		ID:        vehicle + "-" + date.String(),
		VehicleID: vehicle,
		Type:      typ,
		Amount:    core.MoneyFromCents(cents),
		Date:      date,
		Month:     core.MonthOf(date.Time),
	}
}

func assertMoney(t *testing.T, label string, got core.Money, wantCents int64) {
	t.Helper()
	if !got.Equal(core.MoneyFromCents(wantCents)) {
		t.Errorf("%s = %s, want %s", label, got, core.MoneyFromCents(wantCents))
	}
}
