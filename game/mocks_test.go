package game

import (
	"context"
	"time"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/stretchr/testify/mock"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(reason string) {
	m.Called(reason)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- Ledger ---

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Balance(ctx context.Context, player string) (int64, error) {
	args := m.Called(ctx, player)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, player string, amount int64, reason string) (int64, error) {
	args := m.Called(ctx, player, amount, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) Credit(ctx context.Context, player string, amount int64, reason string) (int64, error) {
	args := m.Called(ctx, player, amount, reason)
	return args.Get(0).(int64), args.Error(1)
}

// --- DocumentStore ---

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) PersistDocumentMutation(ctx context.Context, feature string, mut domain.DocumentMutation) error {
	args := m.Called(ctx, feature, mut)
	return args.Error(0)
}

func (m *MockDocumentStore) LoadDocumentSnapshot(ctx context.Context, feature string) ([]domain.DocumentItem, error) {
	args := m.Called(ctx, feature)
	items, _ := args.Get(0).([]domain.DocumentItem)
	return items, args.Error(1)
}

// --- CharacterStore ---

type MockCharacterStore struct {
	mock.Mock
}

func (m *MockCharacterStore) SaveCharacter(ctx context.Context, player string, c domain.Character) error {
	args := m.Called(ctx, player, c)
	return args.Error(0)
}

func (m *MockCharacterStore) GetCharacter(ctx context.Context, player string) (domain.Character, error) {
	args := m.Called(ctx, player)
	return args.Get(0).(domain.Character), args.Error(1)
}

// --- PeriodicTickerChannelCreator ---

type MockPeriodicTickerChannelCreator struct {
	mock.Mock
}

func (m *MockPeriodicTickerChannelCreator) Create(d time.Duration) (<-chan time.Time, func()) {
	args := m.Called(d)
	return args.Get(0).(chan time.Time), func() {}
}
