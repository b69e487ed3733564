package storage_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/blusaccount/maexchen-online/game"
	"github.com/blusaccount/maexchen-online/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repo interface {
	game.Ledger
	game.DocumentStore
	game.CharacterStore
}

var (
	_ repo = (*storage.PostgresRepo)(nil)
	_ repo = (*storage.SQLiteRepo)(nil)
)

func testLedger(t *testing.T, r repo) {
	ctx := context.Background()

	t.Run("new player starts with the starting balance", func(t *testing.T) {
		balance, err := r.Balance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, storage.StartingBalance, balance)
	})

	t.Run("debit and credit move the balance", func(t *testing.T) {
		balance, err := r.Debit(ctx, "bob", 50, "strictly7s_bet")
		require.NoError(t, err)
		assert.Equal(t, storage.StartingBalance-50, balance)

		balance, err = r.Credit(ctx, "bob", 150, "strictly7s_payout")
		require.NoError(t, err)
		assert.Equal(t, storage.StartingBalance+100, balance)

		read, err := r.Balance(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, balance, read)
	})

	t.Run("overdraft is refused and leaves the balance alone", func(t *testing.T) {
		_, err := r.Debit(ctx, "carol", storage.StartingBalance+1, "lobby_effect_rain")
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		balance, err := r.Balance(ctx, "carol")
		require.NoError(t, err)
		assert.Equal(t, storage.StartingBalance, balance)
	})

	t.Run("non-positive amounts are invalid", func(t *testing.T) {
		_, err := r.Debit(ctx, "dave", 0, "x")
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		_, err = r.Credit(ctx, "dave", -5, "x")
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("concurrent debits never overdraw", func(t *testing.T) {
		const workers = 30
		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.Debit(ctx, "erin", 50, "strictly7s_bet"); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		balance, err := r.Balance(ctx, "erin")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, balance, int64(0))
		assert.Equal(t, storage.StartingBalance-int64(succeeded)*50, balance)
	})
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func testDocuments(t *testing.T, r repo) {
	ctx := context.Background()
	const feature = "picto"

	muts := []domain.DocumentMutation{
		{Op: domain.OpPut, Collection: "stroke", Key: "s1", Payload: payload(t, map[string]string{"strokeId": "s1"})},
		{Op: domain.OpPut, Collection: "stroke", Key: "s2", Payload: payload(t, map[string]string{"strokeId": "s2"})},
		{Op: domain.OpPut, Collection: "message", Key: "m1", Payload: payload(t, map[string]string{"text": "hi"})},
		{Op: domain.OpPut, Collection: "stroke", Key: "s3", Payload: payload(t, map[string]string{"strokeId": "s3"})},
		{Op: domain.OpDelete, Collection: "stroke", Key: "s2"},
		// re-putting moves s1 to the end
		{Op: domain.OpPut, Collection: "stroke", Key: "s1", Payload: payload(t, map[string]string{"strokeId": "s1"})},
	}
	for _, m := range muts {
		require.NoError(t, r.PersistDocumentMutation(ctx, feature, m))
	}

	items, err := r.LoadDocumentSnapshot(ctx, feature)
	require.NoError(t, err)

	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Collection+"/"+it.Key)
	}
	if diff := cmp.Diff([]string{"message/m1", "stroke/s3", "stroke/s1"}, keys); diff != "" {
		t.Errorf("load order mismatch (-want +got):\n%s", diff)
	}
	assert.JSONEq(t, `{"text":"hi"}`, string(items[0].Payload))

	require.NoError(t, r.PersistDocumentMutation(ctx, feature, domain.DocumentMutation{Op: domain.OpClear, Collection: "stroke"}))
	items, err = r.LoadDocumentSnapshot(ctx, feature)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "message", items[0].Collection)

	other, err := r.LoadDocumentSnapshot(ctx, "loop")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testCharacters(t *testing.T, r repo) {
	ctx := context.Background()

	_, err := r.GetCharacter(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)

	first := domain.Character{Pixels: []string{"#fff", "#000"}, DataURL: "data:image/png;base64,AAA"}
	require.NoError(t, r.SaveCharacter(ctx, "frank", first))
	got, err := r.GetCharacter(ctx, "frank")
	require.NoError(t, err)
	if diff := cmp.Diff(first, got); diff != "" {
		t.Errorf("character mismatch (-want +got):\n%s", diff)
	}

	second := domain.Character{Pixels: []string{"#f00"}}
	require.NoError(t, r.SaveCharacter(ctx, "frank", second))
	got, err = r.GetCharacter(ctx, "frank")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}
