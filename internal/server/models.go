package server

// AnalyzeRequest asks for a full product analysis. The two include flags
// default to true when omitted from the JSON body.
type AnalyzeRequest struct {
	URL                    string `json:"url"`
	IncludePriceComparison *bool  `json:"include_price_comparison,omitempty"`
	IncludeWebSearch       *bool  `json:"include_web_search,omitempty"`
}

// AnalyzeResponse deliberately carries no degradation detail: a branch that
// failed and a branch the caller opted out of both surface as an empty block
// in the product record.
type AnalyzeResponse struct {
	Success  bool             `json:"success"`
	Tier     string           `json:"tier"`
	Message  string           `json:"message,omitempty"`
	Analysis *AnalysisPayload `json:"analysis,omitempty"`
	Product  interface{}      `json:"product,omitempty"`
}

type AnalysisPayload struct {
	Report  string   `json:"report"`
	Pros    []string `json:"pros,omitempty"`
	Cons    []string `json:"cons,omitempty"`
	Verdict string   `json:"verdict,omitempty"`
}

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url"`
	Question  string `json:"question"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

type ClearChatRequest struct {
	SessionID string `json:"session_id"`
}

type ChatHistoryResponse struct {
	SessionID string      `json:"session_id"`
	Messages  interface{} `json:"messages"`
}

type HTTPError struct {
	Error string `json:"error"`
}
