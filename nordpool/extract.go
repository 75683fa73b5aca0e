package nordpool

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angas/dayahead-go/types"
)

// ExtractIntervals converts a payload into price intervals for market, in payload order.
// Entries without market are skipped, as is a payload without entries. A null price for
// market is malformed.
func ExtractIntervals(payload *Payload, market string) ([]types.PriceInterval, error) {
	intervals := make([]types.PriceInterval, 0)
	if payload == nil {
		return intervals, nil
	}

	for i, entry := range payload.MultiIndexEntries {
		price, ok := entry.EntryPerArea[market]
		if !ok {
			continue
		}

		if price == nil {
			return nil, malformed(i, entry, fmt.Errorf("area %s: %w", market, ErrMissingPrice))
		}

		start, err := parseDeliveryTime(entry.DeliveryStart)
		if err != nil {
			return nil, malformed(i, entry, fmt.Errorf("delivery start: %w", err))
		}
		end, err := parseDeliveryTime(entry.DeliveryEnd)
		if err != nil {
			return nil, malformed(i, entry, fmt.Errorf("delivery end: %w", err))
		}

		duration := int(end.Sub(start) / time.Minute)
		if duration < 1 {
			return nil, malformed(i, entry, errors.New("delivery end is not after delivery start"))
		}

		intervals = append(intervals, types.PriceInterval{
			StartTime: start,
			Duration:  duration,
			Price:     *price / priceDivisor,
		})
	}

	return intervals, nil
}

// The API uses a literal "Z" designator, normalize it to an explicit offset.
func parseDeliveryTime(s string) (time.Time, error) {
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func malformed(i int, entry multiIndexEntry, err error) error {
	return &MalformedEntryError{
		Index:         i,
		DeliveryStart: entry.DeliveryStart,
		DeliveryEnd:   entry.DeliveryEnd,
		Err:           err,
	}
}
