package nordpool

const (
	API_URL  = "https://dataportal-api.nordpoolgroup.com"
	endpoint = "/api/DayAheadPriceIndices"

	currency   = "EUR"
	marketType = "DayAhead"

	// Raw prices are EUR/MWh, we want EUR/kWh
	priceDivisor = 1000.0
)

var BiddingZones = []string{
	"EE", "LT", "LV", "AT", "BE", "FR", "GER", "NL", "PL",
	"DK1", "DK2", "FI",
	"NO1", "NO2", "NO3", "NO4", "NO5",
	"SE1", "SE2", "SE3", "SE4",
}

var SupportedResolutions = []int{15, 30, 60}

// Payload is the part of the DayAheadPriceIndices response we care about.
type Payload struct {
	DeliveryDateCET   string            `json:"deliveryDateCET"`
	Version           int               `json:"version"`
	UpdatedAt         string            `json:"updatedAt"`
	Market            string            `json:"market"`
	IndexNames        []string          `json:"indexNames"`
	Currency          string            `json:"currency"`
	ResolutionInMin   int               `json:"resolutionInMinutes"`
	MultiIndexEntries []multiIndexEntry `json:"multiIndexEntries"`
}

type multiIndexEntry struct {
	DeliveryStart string              `json:"deliveryStart"`
	DeliveryEnd   string              `json:"deliveryEnd"`
	EntryPerArea  map[string]*float64 `json:"entryPerArea"`
}
