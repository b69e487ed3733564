package game

import (
	"context"
	"time"

	"github.com/blusaccount/maexchen-online/domain"
)

// Connection is a live client as seen by the registries. Send must not
// block; it queues the frame for the connection's writer.
type Connection interface {
	ID() string
	RemoteAddr() string
	Send(data []byte) error
}

type WebsocketConnection interface {
	Close(reason string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type Ledger interface {
	Balance(ctx context.Context, player string) (int64, error)
	// Debit returns domain.ErrInsufficientFunds when the balance does not cover amount.
	Debit(ctx context.Context, player string, amount int64, reason string) (int64, error)
	Credit(ctx context.Context, player string, amount int64, reason string) (int64, error)
}

type DocumentStore interface {
	PersistDocumentMutation(ctx context.Context, feature string, m domain.DocumentMutation) error
	LoadDocumentSnapshot(ctx context.Context, feature string) ([]domain.DocumentItem, error)
}

type CharacterStore interface {
	SaveCharacter(ctx context.Context, player string, c domain.Character) error
	// GetCharacter returns domain.ErrPlayerNotFound when nothing is stored.
	GetCharacter(ctx context.Context, player string) (domain.Character, error)
}

type PeriodicTickerChannelCreator interface {
	Create(d time.Duration) (<-chan time.Time, func())
}
