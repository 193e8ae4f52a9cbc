package kusto

import "fmt"

// OneAPIError is the error payload the service returns for failed requests.
// Permanent is a pointer so an absent @permanent member stays
// distinguishable from an explicit false.
type OneAPIError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Type        string `json:"@type"`
	Description string `json:"@message"`
	Permanent   *bool  `json:"@permanent"`
}

type errorEnvelope struct {
	Error OneAPIError `json:"error"`
}

// HTTPError is returned when the service answers with a non-2xx status.
// It carries the status code and, when the body parsed, the service's
// structured error payload.
type HTTPError struct {
	StatusCode int
	API        *OneAPIError
	Body       string
}

func (e *HTTPError) Error() string {
	if e.API != nil && e.API.Message != "" {
		return fmt.Sprintf("kusto request failed with status %d: %s: %s", e.StatusCode, e.API.Code, e.API.Message)
	}
	return fmt.Sprintf("kusto request failed with status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatusCode satisfies the classifier's direct status probe.
func (e *HTTPError) HTTPStatusCode() int {
	return e.StatusCode
}

// PermanentFlag satisfies the classifier's permanence probe. The service
// marks its errors with @permanent, which beats any status-code or
// message heuristic when present.
func (e *HTTPError) PermanentFlag() (bool, bool) {
	if e.API == nil || e.API.Permanent == nil {
		return false, false
	}
	return *e.API.Permanent, true
}

// QueryError is returned when a request succeeded at the transport level
// but the response frame itself reports a failure (partial query errors).
// The originating HTTP failure, if any, is exposed through the nested
// response probe.
type QueryError struct {
	Message  string
	Response *HTTPError
}

func (e *QueryError) Error() string {
	return "kusto query error: " + e.Message
}

// ResponseStatusCode satisfies the classifier's nested response probe.
func (e *QueryError) ResponseStatusCode() (int, bool) {
	if e.Response == nil {
		return 0, false
	}
	return e.Response.StatusCode, true
}

func (e *QueryError) Unwrap() error {
	if e.Response == nil {
		return nil
	}
	return e.Response
}
