package apisharp

import (
	"encoding/json"
	"fmt"

	"github.com/status-im/apisharp/httpclient"
)

// Source tells where a response came from
type Source string

const (
	FromNetwork Source = "network"
	FromCache   Source = "cache"
	FromMock    Source = "mock"
)

// Response is the envelope returned by Client.Request
type Response struct {
	// Data is the body decoded according to the API's ResponseType, or the mock data
	Data       any
	Body       []byte
	Status     int
	StatusText string
	Headers    map[string]string
	From       Source
	API        *ProcessedAPI
}

// Decode unmarshals the JSON body into v. Mock responses are decoded from their data.
func (r *Response) Decode(v any) error {
	raw := r.Body
	if r.From == FromMock {
		var err error
		if raw, err = json.Marshal(r.Data); err != nil {
			return fmt.Errorf("failed to encode mock data: %w", err)
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func newResponse(raw *httpclient.Response, api *ProcessedAPI, from Source) *Response {
	headers := raw.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return &Response{
		Data:       decodeData(raw.Body, api.ResponseType),
		Body:       raw.Body,
		Status:     raw.Status,
		StatusText: raw.StatusText,
		Headers:    headers,
		From:       from,
		API:        api,
	}
}

// decodeData yields nil for an empty or malformed JSON body
func decodeData(body []byte, responseType string) any {
	switch responseType {
	case ResponseTypeText:
		return string(body)
	case ResponseTypeBytes:
		return body
	}

	if len(body) == 0 {
		return nil
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	return data
}
