package models

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is returned by POST /ask.
type AskResponse struct {
	Answer  string `json:"answer"`
	Source  string `json:"source"`
	Model   string `json:"model,omitempty"`
	Title   string `json:"title,omitempty"`
	OnTopic bool   `json:"on_topic"`
}

// AnalyzeImageRequest is the body of POST /analyze-image.
// Image is a base64-encoded JPEG (PNG and WebP also decode).
type AnalyzeImageRequest struct {
	Image    string `json:"image"`
	Question string `json:"question,omitempty"`
}

// EdgeAnalysis is the decorative edge statistic reported alongside a vision answer.
type EdgeAnalysis struct {
	EdgesDetected int    `json:"edges_detected"`
	ImageShape    [2]int `json:"image_shape"` // height, width
}

// AnalyzeImageResponse is returned by POST /analyze-image.
type AnalyzeImageResponse struct {
	Answer         string        `json:"answer"`
	Model          string        `json:"model,omitempty"`
	OpenCVAnalysis *EdgeAnalysis `json:"opencv_analysis"`
}

// WebhookRequest is the subset of a Dialogflow fulfillment request we read.
type WebhookRequest struct {
	QueryResult struct {
		QueryText string `json:"queryText"`
	} `json:"queryResult"`
}

// WebhookResponse is a Dialogflow fulfillment response.
type WebhookResponse struct {
	FulfillmentText string `json:"fulfillmentText"`
	Source          string `json:"source"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	APIAccessible    bool   `json:"api_accessible"`
	ModelStatus      string `json:"model_status"`
}

// ModelInfo describes one model usable for content generation.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ModelList is returned by GET /list-models.
type ModelList struct {
	AvailableModels []ModelInfo `json:"available_models"`
	Count           int         `json:"count"`
}
