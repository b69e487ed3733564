package game

import "time"

type ticker struct{}

func (ticker) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func NewTickerGen() PeriodicTickerChannelCreator {
	return ticker{}
}
