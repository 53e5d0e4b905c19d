package service

import (
	"time"

	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"

	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/escrowhub/escrowhub.go/lib/tokens"
	"github.com/escrowhub/escrowhub.go/rabbitmq"
)

type EscrowService struct {
	Config         *Config
	DB             *bun.DB // nil when running on the in-memory store
	Ledger         *ledger.Ledger
	Logger         *lecho.Logger
	EventLog       *EventLog
	InvoicePubSub  *Pubsub
	RabbitMQClient rabbitmq.Client
}

// GenerateToken mints an access token for the given principal. The caller is
// vetted upstream by the admin token middleware; any well-formed identity is
// eligible.
func (svc *EscrowService) GenerateToken(principal string) (accessToken string, err error) {
	identity, err := ledger.ParseIdentity(principal)
	if err != nil {
		return "", err
	}

	expiry := time.Duration(svc.Config.JWTAccessTokenExpiry) * time.Second
	return tokens.GenerateAccessToken(svc.Config.JWTSecret, expiry, identity)
}
