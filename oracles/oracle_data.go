package oracles

import (
	"time"
)

// PriceData is one price feed update as supplied by the external oracle, the
// engine never fetches it itself. Price and Expo follow the Pyth convention:
// the quoted price is Price * 10^Expo.
type PriceData struct {
	FeedID      string
	Price       int64
	Conf        uint64
	Expo        int32
	PublishTime time.Time
}
