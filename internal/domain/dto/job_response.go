package dto

// JobResponse is the success envelope of an adapter job. Result is repeated
// inside Data so consumers can read either location.
type JobResponse struct {
	JobRunID   string `json:"jobRunID" example:"1"`
	Result     string `json:"result" example:"4321.12345678"`
	Data       any    `json:"data"`
	StatusCode int    `json:"statusCode" example:"200"`
}

// AverageData is the data block of a historical-average response.
type AverageData struct {
	From     string `json:"from" example:"ETH"`
	To       string `json:"to" example:"USD"`
	Source   string `json:"source" example:"coingecko"`
	FromDate string `json:"fromDate" example:"2021-11-01T00:00:00.000Z"`
	ToDate   string `json:"toDate" example:"2021-11-08T00:00:00.000Z"`
	Points   int    `json:"points" example:"8"`
	Cached   bool   `json:"cached" example:"false"`
	Result   string `json:"result" example:"4321.12345678"`
}

// TVLData is the data block of a vault TVL response.
type TVLData struct {
	VaultAddress string `json:"vaultAddress" example:"0x1234567890abcdef1234567890abcdef12345678"`
	Network      string `json:"network" example:"ETHEREUM"`
	Result       string `json:"result" example:"1000000000000000000"`
}
