package models

// DefaultJobRunID is echoed back when a request omits its id.
const DefaultJobRunID = "1"

// JobRequest is the inbound envelope shared by every adapter endpoint:
//
//	{"id": "278c97ffadb54a5bbb93cfec5f7b5503", "data": {...}}
//
// Data is a pointer so an absent "data" object can be told apart from an
// empty one.
type JobRequest[T any] struct {
	ID   string `json:"id"`
	Data *T     `json:"data"`
}

// JobRunID returns the request id, or DefaultJobRunID when none was sent.
func (r JobRequest[T]) JobRunID() string {
	if r.ID == "" {
		return DefaultJobRunID
	}
	return r.ID
}

// AverageParams is the "data" object of a historical-average job.
//
// At least one of FromDate/ToDate is required. Days is required when only one
// of them is present and is ignored when both are.
type AverageParams struct {
	From     string `json:"from" validate:"required" example:"ETH"`
	To       string `json:"to" validate:"required" example:"USD"`
	FromDate string `json:"fromDate" validate:"omitempty,calendardate" example:"2021-11-01"`
	ToDate   string `json:"toDate" validate:"omitempty,calendardate" example:"2021-11-08"`
	Days     *int   `json:"days" example:"7"`
	Source   string `json:"source" validate:"required,source" example:"coingecko"`
}

// TVLParams is the "data" object of a vault TVL job.
type TVLParams struct {
	VaultAddress string `json:"vaultAddress" validate:"required,ethaddr" example:"0x1234567890abcdef1234567890abcdef12345678"`
	Network      string `json:"network" example:"ETHEREUM"`
}
