// internal/chain/submitter.go
package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferRequest describes the on-chain side of a settled trade. Amounts are
// already final; the submitter only moves value and reports a signature.
type TransferRequest struct {
	TokenSymbol string
	FromWallet  string
	ToWallet    string
	TokenAmount uint64
	SolAmount   decimal.Decimal
	Memo        string
}

// Submitter submits a computed settlement to the external ledger and returns
// a transaction identifier. The engine records the identifier on the trade
// but does not wait for chain finality; confirmation and retries belong to
// the collaborator behind this interface.
type Submitter interface {
	SubmitTransfer(ctx context.Context, req TransferRequest) (string, error)
}

// LocalSubmitter is the in-process implementation used by tests and the
// scenario runner. It validates wallet addresses the way the real client
// would and fabricates a deterministic-looking signature.
type LocalSubmitter struct {
	logger *zap.Logger
}

func NewLocalSubmitter(logger *zap.Logger) *LocalSubmitter {
	return &LocalSubmitter{logger: logger.Named("local-submitter")}
}

func (s *LocalSubmitter) SubmitTransfer(ctx context.Context, req TransferRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, wallet := range []string{req.FromWallet, req.ToWallet} {
		if wallet == "" {
			continue // treasury side of a curve trade has no counter-wallet
		}
		if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
			return "", fmt.Errorf("invalid wallet %q: %w", wallet, err)
		}
	}

	signature := "sim-" + uuid.NewString()
	s.logger.Debug("Simulated ledger submission",
		zap.String("token", req.TokenSymbol),
		zap.String("from", req.FromWallet),
		zap.String("to", req.ToWallet),
		zap.Uint64("token_amount", req.TokenAmount),
		zap.String("sol_amount", req.SolAmount.String()),
		zap.String("signature", signature))
	return signature, nil
}
