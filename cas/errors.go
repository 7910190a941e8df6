package cas

import "fmt"

// PublishError is returned when the content store rejects the upload.
type PublishError struct {
	Status int
	Body   string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed: status %d: %s", e.Status, e.Body)
}

// FetchError is returned when the gateway responds with non-200 status.
type FetchError struct {
	CID    string
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed: status %d: %s", e.CID, e.Status, e.Body)
}
