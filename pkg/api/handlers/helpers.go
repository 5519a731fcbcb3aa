package handlers

import "net/url"

// parseForm decodes an application/x-www-form-urlencoded body.
func parseForm(body []byte) (url.Values, error) {
	return url.ParseQuery(string(body))
}
