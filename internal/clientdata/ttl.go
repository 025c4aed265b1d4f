package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Daily data (refreshed by the sync job)
	TTLDailyHistory = 12 * time.Hour // Historical daily candles

	// Short-lived data (changes frequently)
	TTLExchangeRate = time.Hour        // Currency exchange rates
	TTLCurrentPrice = 10 * time.Minute // Current price cache for valuation
)
