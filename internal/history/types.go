package history

import "time"

// Trade sides and statuses as written to the event log.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Default signal tags when an event carries none.
const (
	SignalEntry   = "ENTRY"
	SignalScaleIn = "SCALE_IN"
	SignalExit    = "EXIT"
)

// maxEvents bounds how much of the event log is replayed per request.
const maxEvents = 2000

// openTrade is the running position of one symbol while replaying.
type openTrade struct {
	EntryTS        *string    // Formatted entry timestamp, nil when unparseable
	entryAt        *time.Time // Parsed entry time for hold duration
	EntryPrice     *float64   // Entry fill of the first BUY
	TargetPrice    *float64   // Latest non-null target
	ExpectedProfit *float64   // Latest non-null expected profit %
	Stage          any        // Robot stage as logged
	LastSignal     string     // Last signal tag seen
}
