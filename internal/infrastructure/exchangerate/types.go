package exchangerate

import "encoding/json"

// latestResponse covers the two payload shapes seen in the wild:
// {"base","date","rates"} and {"result","base_code","conversion_rates"}
type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	Base            string                     `json:"base"`
	BaseCode        string                     `json:"base_code"`
	Date            string                     `json:"date"`
	TimeLastUpdate  int64                      `json:"time_last_update_unix"`
	Rates           map[string]json.RawMessage `json:"rates"`
	ConversionRates map[string]json.RawMessage `json:"conversion_rates"`
}

func (r *latestResponse) base() string {
	if r.BaseCode != "" {
		return r.BaseCode
	}
	return r.Base
}

func (r *latestResponse) rates() map[string]json.RawMessage {
	if len(r.ConversionRates) > 0 {
		return r.ConversionRates
	}
	return r.Rates
}
