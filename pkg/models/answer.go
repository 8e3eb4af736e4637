package models

// Answer sources.
const (
	SourceLLM          = "llm"
	SourceEncyclopedia = "encyclopedia"
)

// Answer is the result of answering one question, independent of the transport.
type Answer struct {
	Text    string `json:"answer"`
	Source  string `json:"source"`
	Model   string `json:"model,omitempty"`
	Title   string `json:"title,omitempty"`
	OnTopic bool   `json:"on_topic"`
	Cached  bool   `json:"cached,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Usage represents token usage reported by the model backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
