package httpclient

//go:generate mockgen -package=mock -source=handler.go -destination=mock/handler.go

// IHttpStatusHandler is an interface for handling HTTP request statuses
type IHttpStatusHandler interface {
	// OnRequest handles a request with its status result:
	// "success", "http_error", "timeout", "aborted", "rate_limited" or "error"
	OnRequest(status string)
}
