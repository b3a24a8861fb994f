package session

import (
	"errors"
	"net/http"
)

// Transport sends the stored session token as a bearer token on every
// backend request, so CouchDB authenticates the signed-in user rather than
// the bridge. Requests go out unchanged when no one is signed in.
type Transport struct {
	Store *Store
	Base  http.RoundTripper
}

func NewTransport(store *Store, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Store: store, Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Store.Token(req.Context())
	if errors.Is(err, ErrNoSession) {
		return t.Base.RoundTrip(req)
	}
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return t.Base.RoundTrip(out)
}
