package crypstyx

// currencyPairsEntry is one base currency with its quoted pairs, as served
// by the currencypairs catalogue endpoint.
type currencyPairsEntry struct {
	FirstCurrency wireCurrency `json:"firstCurrency"`
	Pairs         []wirePair   `json:"pairs"`
}

type wireCurrency struct {
	ID    int    `json:"id"`
	Code  string `json:"code"`
	Scale int    `json:"scale"`
}

type wirePair struct {
	ID             int          `json:"id"`
	SecondCurrency wireCurrency `json:"secondCurrency"`
}

// graphDataRequest asks for up to depth candles ending at endDateTime.
type graphDataRequest struct {
	PairID      int    `json:"pairId"`
	EndDateTime string `json:"endDateTime"`
	Depth       int    `json:"depth"`
	ChartType   string `json:"chartType"`
}

type graphDataRow struct {
	DateTime string  `json:"dateTime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

type walletEntry struct {
	Code      string  `json:"code"`
	Available float64 `json:"available"`
	Reserved  float64 `json:"reserved"`
}
