package v1

type Message struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	ID       *uint   `json:"id"`
	UserType *string `json:"user_type"`
}

type LoginResponse struct {
	Message    string `json:"message"`
	ClientID   *uint  `json:"client_id,omitempty"`
	ProviderID *uint  `json:"provider_id,omitempty"`
}

type SpecsRequest struct {
	Cores      *int     `json:"cores"`
	ClockSpeed *float64 `json:"clock_speed"`
	Memory     *int     `json:"memory"`
}

type ProviderMessage struct {
	Message    string `json:"message"`
	ProviderID uint   `json:"provider_id"`
}

type CodeSubmission struct {
	Cores      *int     `json:"cores"`
	ClockSpeed *float64 `json:"clock_speed"`
	Memory     *int     `json:"memory"`
	CodeText   *string  `json:"code_text"`
}

type RequestCreated struct {
	Message   string `json:"message"`
	RequestID uint   `json:"request_id"`
	Status    string `json:"status"`
}

type EligibleRequest struct {
	RequestID  uint    `json:"request_id"`
	ClientID   uint    `json:"client_id"`
	Cores      int     `json:"cores"`
	ClockSpeed float64 `json:"clock_speed"`
	Memory     int     `json:"memory"`
}

type BidOffer struct {
	Price *float64 `json:"price"`
}

type BidSubmitted struct {
	Message string `json:"message"`
	BidID   uint   `json:"bid_id"`
}

type Bid struct {
	ID         uint    `json:"id"`
	ProviderID uint    `json:"provider_id"`
	Price      float64 `json:"price"`
	Accepted   bool    `json:"accepted"`
	RequestID  uint    `json:"request_id"`
}

type ClientRequest struct {
	ID           uint    `json:"id"`
	Cores        int     `json:"cores"`
	ClockSpeed   float64 `json:"clock_speed"`
	Memory       int     `json:"memory"`
	Status       string  `json:"status"`
	ResultOutput *string `json:"result_output"`
}

type PendingJob struct {
	RequestID  uint   `json:"request_id"`
	ProviderID uint   `json:"provider_id"`
	CodeText   string `json:"code_text"`
}

type JobResult struct {
	RequestID  *uint   `json:"request_id"`
	ProviderID *uint   `json:"provider_id"`
	Output     *string `json:"output"`
}

type ResultReceived struct {
	Message     string `json:"message"`
	RequestID   uint   `json:"request_id"`
	CompletedAt string `json:"completed_at"`
}

type CurrentJob struct {
	RequestID  uint    `json:"request_id"`
	ClientID   uint    `json:"client_id"`
	Cores      int     `json:"cores"`
	ClockSpeed float64 `json:"clock_speed"`
	Memory     int     `json:"memory"`
	CodeText   string  `json:"code_text"`
}

type ProviderStatus struct {
	ProviderID uint        `json:"provider_id"`
	Available  bool        `json:"available"`
	CurrentJob *CurrentJob `json:"current_job"`
}

// Error is an RFC 7807 problem document.
type Error struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}
