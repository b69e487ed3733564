package game

import (
	"slices"
	"time"
)

const (
	slotSpinCooldown = 1200 * time.Millisecond
	rainCost         = 20
)

var slotBets = []int64{2, 5, 10, 15, 20, 50}

type slotSymbol struct {
	id         string
	weight     int
	multiplier int64
}

var slotSymbols = []slotSymbol{
	{id: "SEVEN", weight: 1, multiplier: 84},
	{id: "BAR", weight: 2, multiplier: 34},
	{id: "DIAMOND", weight: 3, multiplier: 25},
	{id: "BELL", weight: 4, multiplier: 17},
	{id: "CHERRY", weight: 6, multiplier: 13},
	{id: "LEMON", weight: 8, multiplier: 8},
}

func validBet(bet int64) bool {
	return slices.Contains(slotBets, bet)
}

type spinOutcome struct {
	reels      []string
	multiplier int64
	winType    string
}

// spin draws three weighted reels. intn must return a value in [0, n).
func spin(intn func(n int) int) spinOutcome {
	total := 0
	for _, s := range slotSymbols {
		total += s.weight
	}
	reels := make([]slotSymbol, 3)
	for i := range reels {
		reels[i] = pickSymbol(intn(total))
	}

	out := spinOutcome{winType: "none"}
	for _, r := range reels {
		out.reels = append(out.reels, r.id)
	}
	cherries := 0
	for _, r := range reels {
		if r.id == "CHERRY" {
			cherries++
		}
	}
	switch {
	case reels[0].id == reels[1].id && reels[1].id == reels[2].id:
		out.multiplier, out.winType = reels[0].multiplier, "three-kind"
	case cherries >= 2:
		out.multiplier, out.winType = 2, "two-cherries"
	}
	return out
}

func pickSymbol(roll int) slotSymbol {
	acc := 0
	for _, s := range slotSymbols {
		acc += s.weight
		if roll < acc {
			return s
		}
	}
	return slotSymbols[len(slotSymbols)-1]
}
