package llm

import (
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind groups upstream failures by what the user should be told.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindNotFound
	KindQuota
	KindAuth
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindQuota:
		return "quota"
	case KindAuth:
		return "auth"
	default:
		return "other"
	}
}

// Classify inspects an upstream error. Status codes win; message text is the fallback
// for errors that lost their status on the way.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, ErrNoAPIKey) {
		return KindAuth
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindQuota
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return KindNotFound
	case strings.Contains(msg, "quota"):
		return KindQuota
	case strings.Contains(msg, "api key"):
		return KindAuth
	}
	return KindOther
}
