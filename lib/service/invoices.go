package service

import (
	"context"

	"github.com/escrowhub/escrowhub.go/ledger"
)

// AddInvoice validates the raw request fields and mints a new invoice with
// the caller as client.
func (svc *EscrowService) AddInvoice(ctx context.Context, caller ledger.Identity, freelancer, amount, memo string) (uint64, error) {
	payee, err := ledger.ParseIdentity(freelancer)
	if err != nil {
		return 0, err
	}
	value, err := ledger.ParseAmount(amount)
	if err != nil {
		return 0, err
	}

	id, err := svc.Ledger.CreateInvoice(ctx, payee, value, memo, caller)
	if err != nil {
		return 0, err
	}
	svc.Logger.Infof("Created invoice: id %d client %s freelancer %s amount %s", id, caller, payee, value.Dec())
	return id, nil
}

// FundInvoice places the supplied value in escrow for the invoice.
func (svc *EscrowService) FundInvoice(ctx context.Context, id uint64, amount string, caller ledger.Identity) error {
	value, err := ledger.ParseAmount(amount)
	if err != nil {
		return err
	}
	if err := svc.Ledger.FundInvoice(ctx, id, value, caller); err != nil {
		return err
	}
	svc.Logger.Infof("Funded invoice: id %d amount %s", id, value.Dec())
	return nil
}

func (svc *EscrowService) CompleteInvoice(ctx context.Context, id uint64, caller ledger.Identity) error {
	return svc.Ledger.MarkCompleted(ctx, id, caller)
}

func (svc *EscrowService) ReleasePayment(ctx context.Context, id uint64, caller ledger.Identity) error {
	if err := svc.Ledger.ReleasePayment(ctx, id, caller); err != nil {
		return err
	}
	svc.Logger.Infof("Released payment: invoice id %d", id)
	return nil
}

func (svc *EscrowService) CancelInvoice(ctx context.Context, id uint64, caller ledger.Identity) error {
	return svc.Ledger.CancelInvoice(ctx, id, caller)
}

// ResolveDispute settles a disputed invoice, releasing to the freelancer or
// refunding the client depending on the verdict.
func (svc *EscrowService) ResolveDispute(ctx context.Context, id uint64, releaseToFreelancer bool, caller ledger.Identity) error {
	if err := svc.Ledger.ResolveDispute(ctx, id, releaseToFreelancer, caller); err != nil {
		return err
	}
	svc.Logger.Infof("Resolved dispute: invoice id %d release %t", id, releaseToFreelancer)
	return nil
}

func (svc *EscrowService) GetInvoice(ctx context.Context, id uint64) (*ledger.Invoice, error) {
	return svc.Ledger.GetInvoice(ctx, id)
}

func (svc *EscrowService) GetInvoiceStatus(ctx context.Context, id uint64) (ledger.Status, error) {
	return svc.Ledger.GetInvoiceStatus(ctx, id)
}

func (svc *EscrowService) TotalInvoices() uint64 {
	return svc.Ledger.GetTotalInvoices()
}

// TransferArbiter hands the dispute-resolution role to a new identity.
func (svc *EscrowService) TransferArbiter(next string, caller ledger.Identity) error {
	identity, err := ledger.ParseIdentity(next)
	if err != nil {
		return err
	}
	if err := svc.Ledger.TransferArbiter(identity, caller); err != nil {
		return err
	}
	svc.Logger.Infof("Transferred arbiter role to %s", identity)
	return nil
}
