package insights

import (
	"context"
	"math"
	"testing"

	"github.com/dvloznov/banking-insights/internal/domain"
)

func idSet(ids ...string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func TestAggregateAccountsDepositsAndWithdrawals(t *testing.T) {
	transfers := []domain.Transfer{
		{ID: "t1", Type: domain.TransferTypeDeposit, Amount: 100, PayeeID: "a1"},
		{ID: "t2", Type: domain.TransferTypeDeposit, Amount: 50, PayeeID: "a1"},
		{ID: "t3", Type: domain.TransferTypeWithdrawal, Amount: 30, PayerID: "a1"},
	}

	profiles := AggregateAccounts(context.Background(), nil, transfers, idSet("a1"))

	p, ok := profiles["a1"]
	if !ok {
		t.Fatal("no profile for account a1")
	}

	if p.NumDeposits != 2 || p.TotalDeposits != 150 {
		t.Errorf("deposits = (%d, %.0f), want (2, 150)", p.NumDeposits, p.TotalDeposits)
	}
	if p.AvgDeposit != 75 {
		t.Errorf("avg deposit = %.2f, want 75", p.AvgDeposit)
	}
	if p.NumWithdrawals != 1 || p.TotalWithdrawals != 30 {
		t.Errorf("withdrawals = (%d, %.0f), want (1, 30)", p.NumWithdrawals, p.TotalWithdrawals)
	}
	if p.DepositWithdrawalRatio == nil || *p.DepositWithdrawalRatio != 5.0 {
		t.Errorf("ratio = %v, want 5.0", p.DepositWithdrawalRatio)
	}
}

func TestAggregateAccountsRatioNilWithoutWithdrawals(t *testing.T) {
	transfers := []domain.Transfer{
		{ID: "t1", Type: domain.TransferTypeDeposit, Amount: 100, PayeeID: "a1"},
	}

	profiles := AggregateAccounts(context.Background(), nil, transfers, idSet("a1"))

	p := profiles["a1"]
	if p.DepositWithdrawalRatio != nil {
		t.Errorf("ratio = %v, want nil when no withdrawals", *p.DepositWithdrawalRatio)
	}
}

func TestAggregateAccountsP2PBothSidesKnown(t *testing.T) {
	transfers := []domain.Transfer{
		{ID: "t1", Type: domain.TransferTypeP2P, Amount: 40, PayerID: "a1", PayeeID: "a2"},
	}

	profiles := AggregateAccounts(context.Background(), nil, transfers, idSet("a1", "a2"))

	sender := profiles["a1"]
	if sender.NumTransfersSent != 1 || sender.TotalTransfersSent != 40 {
		t.Errorf("sender = (%d, %.0f), want (1, 40)", sender.NumTransfersSent, sender.TotalTransfersSent)
	}
	if sender.NumTransfersReceived != 0 {
		t.Errorf("sender received %d transfers, want 0", sender.NumTransfersReceived)
	}

	receiver := profiles["a2"]
	if receiver.NumTransfersReceived != 1 || receiver.TotalTransfersReceived != 40 {
		t.Errorf("receiver = (%d, %.0f), want (1, 40)", receiver.NumTransfersReceived, receiver.TotalTransfersReceived)
	}
}

func TestAggregateAccountsP2PExternalDropped(t *testing.T) {
	transfers := []domain.Transfer{
		{ID: "t1", Type: domain.TransferTypeP2P, Amount: 40, PayerID: "ext1", PayeeID: "ext2"},
	}

	profiles := AggregateAccounts(context.Background(), nil, transfers, idSet("a1"))

	if len(profiles) != 0 {
		t.Errorf("got %d profiles, want 0 for a fully external transfer", len(profiles))
	}
}

func TestAggregateAccountsP2PHalfKnown(t *testing.T) {
	// Only the payer is internal: the amount counts as sent from a1 and
	// nowhere as received.
	transfers := []domain.Transfer{
		{ID: "t1", Type: domain.TransferTypeP2P, Amount: 25, PayerID: "a1", PayeeID: "ext"},
	}

	profiles := AggregateAccounts(context.Background(), nil, transfers, idSet("a1"))

	p := profiles["a1"]
	if p.NumTransfersSent != 1 || p.TotalTransfersSent != 25 {
		t.Errorf("sent = (%d, %.0f), want (1, 25)", p.NumTransfersSent, p.TotalTransfersSent)
	}
	if p.NumTransfersReceived != 0 {
		t.Errorf("received = %d, want 0", p.NumTransfersReceived)
	}
}

func TestAggregateAccountsSelfTransfer(t *testing.T) {
	transfers := []domain.Transfer{
		{ID: "t1", Type: domain.TransferTypeP2P, Amount: 10, PayerID: "a1", PayeeID: "a1"},
	}

	profiles := AggregateAccounts(context.Background(), nil, transfers, idSet("a1"))

	p := profiles["a1"]
	if p.NumTransfersSent != 1 || p.NumTransfersReceived != 1 {
		t.Errorf("self transfer = sent %d / received %d, want 1/1", p.NumTransfersSent, p.NumTransfersReceived)
	}
	if p.TotalP2PCount != 2 || p.TotalP2PVolume != 20 {
		t.Errorf("p2p totals = (%d, %.0f), want (2, 20)", p.TotalP2PCount, p.TotalP2PVolume)
	}
}

func TestAggregateAccountsUnknownTypeExcluded(t *testing.T) {
	transfers := []domain.Transfer{
		{ID: "t1", Type: "wire", Amount: 999, PayerID: "a1", PayeeID: "a1"},
		{ID: "t2", Type: domain.TransferTypeDeposit, Amount: 5, PayeeID: "a1"},
	}

	profiles := AggregateAccounts(context.Background(), nil, transfers, idSet("a1"))

	p := profiles["a1"]
	if p.TotalTransactionVolume != 5 {
		t.Errorf("transaction volume = %.0f, want 5 (unknown type excluded)", p.TotalTransactionVolume)
	}
}

func TestAggregateAccountsBills(t *testing.T) {
	bills := []domain.Bill{
		{ID: "b1", AccountID: "a1", PaymentAmount: 120, Status: domain.BillStatusRecurring},
		{ID: "b2", AccountID: "a1", PaymentAmount: 60, Status: "completed"},
		{ID: "b3", AccountID: "", PaymentAmount: 40},
	}

	profiles := AggregateAccounts(context.Background(), bills, nil, idSet("a1"))

	p := profiles["a1"]
	if p.NumBills != 2 || p.NumRecurring != 1 {
		t.Errorf("bills = (%d recurring %d), want (2, 1)", p.NumBills, p.NumRecurring)
	}
	if p.TotalBillAmount != 180 || p.AvgBillAmount != 90 {
		t.Errorf("bill amounts = (%.0f, %.0f), want (180, 90)", p.TotalBillAmount, p.AvgBillAmount)
	}
}

func TestAggregateAccountsDerivedTotals(t *testing.T) {
	bills := []domain.Bill{
		{ID: "b1", AccountID: "a1", PaymentAmount: 10},
	}
	transfers := []domain.Transfer{
		{ID: "t1", Type: domain.TransferTypeDeposit, Amount: 20, PayeeID: "a1"},
		{ID: "t2", Type: domain.TransferTypeWithdrawal, Amount: 5, PayerID: "a1"},
		{ID: "t3", Type: domain.TransferTypeP2P, Amount: 15, PayerID: "a1", PayeeID: "a2"},
	}

	profiles := AggregateAccounts(context.Background(), bills, transfers, idSet("a1", "a2"))

	p := profiles["a1"]
	// 1 bill + 1 deposit + 1 withdrawal + 1 p2p sent.
	if p.TotalTransactionsCount != 4 {
		t.Errorf("transactions count = %d, want 4", p.TotalTransactionsCount)
	}
	if math.Abs(p.TotalTransactionVolume-50) > 1e-9 {
		t.Errorf("transaction volume = %.2f, want 50", p.TotalTransactionVolume)
	}
	if p.DepositWithdrawalRatio == nil || *p.DepositWithdrawalRatio != 4.0 {
		t.Errorf("ratio = %v, want 4.0", p.DepositWithdrawalRatio)
	}
}
