package models

import "time"

// AuditEntry represents a single answered request.
type AuditEntry struct {
	RequestID        string    `json:"request_id"`
	Endpoint         string    `json:"endpoint"`
	Question         string    `json:"question,omitempty"`
	Answer           string    `json:"answer,omitempty"`
	Source           string    `json:"source"`
	Model            string    `json:"model"`
	StatusCode       int       `json:"status_code"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DBPath        string   `yaml:"db_path"`
	RetentionDays int      `yaml:"retention_days"`
	Include       []string `yaml:"include"`       // "questions", "answers"
	MaxBodySize   int      `yaml:"max_body_size"` // bytes
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	Endpoint  string
	Model     string
	Source    string
	Since     time.Time
	RequestID string
	Limit     int
}

// AuditStat holds aggregate audit counts for an endpoint/source/day combination.
type AuditStat struct {
	Endpoint string
	Source   string
	Day      string
	Count    int
	Tokens   int64
}
