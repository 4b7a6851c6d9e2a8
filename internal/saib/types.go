package saib

// Wire structures for the SAIB B2B payroll API. Field names are PascalCase
// to match the bank's JSON exactly.

type PaymentRequest struct {
	CompanyCode              string `json:"CompanyCode"`
	APIReference             string `json:"ApiReference"`
	ValueDate                string `json:"ValueDate"`
	DebtorAccount            string `json:"DebtorAccount"`
	MOLEstablishmentID       string `json:"MolEstablishmentId"`
	PayrollTransactionCount  int    `json:"PayrollTransactionCount"`
	PayrollTransactionAmount string `json:"PayrollTransactionAmount"`
	// Gzip-compressed, base64-encoded JSON array of payroll lines.
	PayrollDetails string `json:"PayrollDetails"`
}

type PaymentResponse struct {
	Data struct {
		StatusCode      string `json:"StatusCode"`
		StatusDesc      string `json:"StatusDesc"`
		ReferenceNumber string `json:"ReferenceNumber"`
	} `json:"Data"`
	ErrorCode string `json:"ErrorCode"`
	ErrorDesc string `json:"ErrorDesc"`
}

type InquiryRequest struct {
	CompanyCode  string `json:"CompanyCode"`
	APIReference string `json:"ApiReference"`
}

type InquiryResponse struct {
	Data struct {
		StatusCode string `json:"StatusCode"`
		StatusDesc string `json:"StatusDesc"`
		// Optional compressed per-line status detail.
		PayrollDetails string `json:"PayrollDetails"`
	} `json:"Data"`
	ErrorCode string `json:"ErrorCode"`
	ErrorDesc string `json:"ErrorDesc"`
}

type SignedFileResponse struct {
	Data struct {
		FileName    string `json:"FileName"`
		FileContent string `json:"FileContent"` // base64
	} `json:"Data"`
	ErrorCode string `json:"ErrorCode"`
	ErrorDesc string `json:"ErrorDesc"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
