package tableschema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"katalog/internal/httpclient"
)

// UnavailableError reports a network or HTTP failure while retrieving the
// schema document.
type UnavailableError struct {
	URL    string
	Status int // 0 when the request never completed
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tableschema: fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("tableschema: fetch %s: %v", e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// MalformedError reports a schema document that could be retrieved but not
// parsed into a usable schema.
type MalformedError struct {
	URL    string
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("tableschema: %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("tableschema: %s", e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// maxDocumentSize caps how much of a schema response is read. Real schema
// documents are a few kilobytes; the cap guards against a misdirected URL
// serving a payload file.
const maxDocumentSize = 4 << 20

// Fetch retrieves and parses the schema document a distribution conforms to.
// One GET, no retries.
func Fetch(ctx context.Context, client *httpclient.Client, url, locale string) (*Schema, error) {
	hdr := http.Header{}
	hdr.Set("Accept", "application/json")

	resp, err := client.Get(ctx, url, hdr)
	if err != nil {
		return nil, &UnavailableError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &UnavailableError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, &UnavailableError{URL: url, Err: err}
	}

	schema, err := Parse(body, locale)
	if err != nil {
		var me *MalformedError
		if errors.As(err, &me) {
			me.URL = url
		}
		return nil, err
	}
	return schema, nil
}
