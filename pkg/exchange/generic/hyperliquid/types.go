package hyperliquid

import "encoding/json"

// ActionType enumerates the exchange actions the session issues.
type ActionType string

const (
	ActionTypeOrder  ActionType = "order"
	ActionTypeCancel ActionType = "cancel"
)

// Action is the payload sent to the exchange endpoint. Field order matters
// for the msgpack action hash, so new fields go at the end.
type Action struct {
	Type     ActionType      `json:"type" msgpack:"type"`
	Orders   []orderPayload  `json:"orders,omitempty" msgpack:"orders,omitempty"`
	Cancels  []cancelPayload `json:"cancels,omitempty" msgpack:"cancels,omitempty"`
	Grouping string          `json:"grouping,omitempty" msgpack:"grouping,omitempty"`
}

type orderPayload struct {
	Asset      int              `json:"a" msgpack:"a"`
	IsBuy      bool             `json:"b" msgpack:"b"`
	LimitPx    string           `json:"p" msgpack:"p"`
	Sz         string           `json:"s" msgpack:"s"`
	ReduceOnly bool             `json:"r" msgpack:"r"`
	OrderType  orderTypePayload `json:"t" msgpack:"t"`
}

type orderTypePayload struct {
	Limit *limitOrderPayload `json:"limit,omitempty" msgpack:"limit,omitempty"`
}

type limitOrderPayload struct {
	TIF string `json:"tif" msgpack:"tif"`
}

type cancelPayload struct {
	Asset int   `json:"a" msgpack:"a"`
	Oid   int64 `json:"o" msgpack:"o"`
}

// ExchangeRequest is the signed envelope for exchange actions.
type ExchangeRequest struct {
	Action    Action    `json:"action"`
	Nonce     int64     `json:"nonce"`
	Signature Signature `json:"signature"`
}

// Signature is an ECDSA signature in Ethereum wire form.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// infoRequest targets the unsigned info endpoint.
type infoRequest struct {
	Type string         `json:"type"`
	User string         `json:"user,omitempty"`
	Coin string         `json:"coin,omitempty"`
	Oid  int64          `json:"oid,omitempty"`
	Req  *candleRequest `json:"req,omitempty"`
}

type candleRequest struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime,omitempty"`
}

type metaResponse struct {
	Universe []universeEntry `json:"universe"`
}

type universeEntry struct {
	Name        string  `json:"name"`
	SzDecimals  int     `json:"szDecimals"`
	MaxLeverage float64 `json:"maxLeverage"`
	IsDelisted  bool    `json:"isDelisted"`
}

type candleRow struct {
	OpenTime int64  `json:"t"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
}

type bookLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

type l2BookResponse struct {
	Coin   string        `json:"coin"`
	Time   int64         `json:"time"`
	Levels [][]bookLevel `json:"levels"`
}

type clearinghouseState struct {
	MarginSummary struct {
		AccountValue    string `json:"accountValue"`
		TotalMarginUsed string `json:"totalMarginUsed"`
	} `json:"marginSummary"`
	Withdrawable string `json:"withdrawable"`
}

type wireOrder struct {
	Coin      string `json:"coin"`
	Side      string `json:"side"`
	LimitPx   string `json:"limitPx"`
	Sz        string `json:"sz"`
	OrigSz    string `json:"origSz"`
	Oid       int64  `json:"oid"`
	Timestamp int64  `json:"timestamp"`
}

type orderStatusResponse struct {
	Status string `json:"status"`
	Order  struct {
		Order           wireOrder `json:"order"`
		Status          string    `json:"status"`
		StatusTimestamp int64     `json:"statusTimestamp"`
	} `json:"order"`
}

// exchangeResponse is the envelope for both order and cancel results. Each
// status is either the string "success" or an object carrying resting,
// filled, or error detail.
type exchangeResponse struct {
	Status   string `json:"status"`
	Response struct {
		Type string `json:"type"`
		Data struct {
			Statuses []actionStatus `json:"statuses"`
		} `json:"data"`
	} `json:"response"`
}

type actionStatus struct {
	Resting *struct {
		Oid int64 `json:"oid"`
	} `json:"resting,omitempty"`
	Filled *struct {
		Oid     int64  `json:"oid"`
		AvgPx   string `json:"avgPx"`
		TotalSz string `json:"totalSz"`
	} `json:"filled,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *actionStatus) UnmarshalJSON(data []byte) error {
	if string(data) == `"success"` {
		*s = actionStatus{}
		return nil
	}
	type alias actionStatus
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = actionStatus(a)
	return nil
}
