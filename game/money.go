package game

import (
	"context"
	"errors"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/rs/zerolog/log"
)

// The handlers below all move or read coins. Each one does its ledger work
// inside a single suspended call, so a spin is debited, drawn and paid out
// as one unit and the hotel only ever sees the settled result.

func (h *Hotel) sendBalance(connID, player string) {
	h.suspend(func(ctx context.Context) func() {
		balance, err := h.ledger.Balance(ctx, player)
		if err != nil {
			log.Error().Err(err).Str("player", player).Msg("reading balance")
			return nil
		}
		return func() {
			h.out.SendToOne(connID, BalanceUpdate{Balance: balance})
		}
	})
}

func (h *Hotel) getBalance(conn Connection) {
	identity, ok := h.presence.Lookup(conn.ID())
	if !ok {
		return
	}
	h.sendBalance(conn.ID(), identity.Name)
}

func (h *Hotel) slotSpin(conn Connection, e *SlotSpin) {
	connID := conn.ID()
	if !h.limiter.Cooldown(connID, slotSpinCooldown, h.now()) {
		h.out.SendToOne(connID, SlotError{Message: "Spin cooldown active. Try again."})
		return
	}
	identity, ok := h.presence.Lookup(connID)
	if !ok {
		h.out.SendToOne(connID, SlotError{Message: "Not logged in"})
		return
	}
	if !validBet(e.Bet) {
		h.out.SendToOne(connID, SlotError{Message: "Invalid bet amount"})
		return
	}

	player, bet, intn := identity.Name, e.Bet, h.intn
	h.suspend(func(ctx context.Context) func() {
		balance, err := h.ledger.Debit(ctx, player, bet, "strictly7s_bet")
		if err != nil {
			msg := "Spin failed. Try again."
			if errors.Is(err, domain.ErrInsufficientFunds) {
				msg = "Not enough coins"
			} else {
				log.Error().Err(err).Str("player", player).Int64("bet", bet).Msg("debiting spin")
			}
			return func() { h.out.SendToOne(connID, SlotError{Message: msg}) }
		}

		outcome := spin(intn)
		payout := bet * outcome.multiplier
		if payout > 0 {
			credited, err := h.ledger.Credit(ctx, player, payout, "strictly7s_payout")
			if err != nil {
				log.Error().Err(err).Str("player", player).Int64("payout", payout).Msg("crediting spin payout")
			} else {
				balance = credited
			}
		}

		result := SlotResult{
			Reels:      outcome.reels,
			Bet:        bet,
			Payout:     payout,
			Multiplier: outcome.multiplier,
			WinType:    outcome.winType,
			Balance:    balance,
		}
		return func() {
			h.out.SendToOne(connID, BalanceUpdate{Balance: balance})
			h.out.SendToOne(connID, result)
		}
	})
}

// makeItRain charges the sender and shows the effect to everyone online.
func (h *Hotel) makeItRain(conn Connection) {
	connID := conn.ID()
	identity, ok := h.presence.Lookup(connID)
	if !ok {
		return
	}
	player := identity.Name
	h.suspend(func(ctx context.Context) func() {
		balance, err := h.ledger.Debit(ctx, player, rainCost, "lobby_effect_rain")
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return func() { h.sendError(connID, domain.ErrInsufficientFunds) }
		}
		if err != nil {
			log.Error().Err(err).Str("player", player).Msg("debiting rain effect")
			return nil
		}
		return func() {
			h.out.SendToOne(connID, BalanceUpdate{Balance: balance})
			h.out.SendToAll(RainEffect{PlayerName: player})
		}
	})
}

// getPlayerCharacter answers from presence when the player is online and
// falls back to the character store otherwise.
func (h *Hotel) getPlayerCharacter(conn Connection, e *GetPlayerCharacter) {
	name := sanitizeName(e.Name)
	if name == "" {
		return
	}
	connID := conn.ID()
	if identity, ok := h.presence.FindByName(name); ok {
		h.out.SendToOne(connID, PlayerCharacter{Name: identity.Name, Character: identity.Character, Game: identity.Game, Online: true})
		return
	}
	h.suspend(func(ctx context.Context) func() {
		character, err := h.characters.GetCharacter(ctx, name)
		if err != nil {
			if !errors.Is(err, domain.ErrPlayerNotFound) {
				log.Error().Err(err).Str("player", name).Msg("loading character")
			}
			return nil
		}
		return func() {
			h.out.SendToOne(connID, PlayerCharacter{Name: name, Character: &character})
		}
	})
}
