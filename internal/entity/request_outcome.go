package entity

// RequestOutcome is the result of one image generation request for one record.
// Succeeded implies ImageURL is non-empty.
type RequestOutcome struct {
	Succeeded bool
	ImageURL  string
	// Attempts is how many HTTP calls were made, zero for a cache hit.
	Attempts int
	// StatusCode is the last HTTP status seen, zero on transport failure.
	StatusCode int
	// Reason describes why the request failed.
	Reason string
	// Cached is set when the URL came from the result cache.
	Cached bool
}

// Success builds a successful outcome.
func Success(imageURL string, attempts int) RequestOutcome {
	return RequestOutcome{Succeeded: true, ImageURL: imageURL, Attempts: attempts}
}

// Failure builds a failed outcome.
func Failure(reason string, statusCode, attempts int) RequestOutcome {
	return RequestOutcome{Reason: reason, StatusCode: statusCode, Attempts: attempts}
}
