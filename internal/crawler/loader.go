package crawler

import "context"

// Fetcher is the byte-level fetch capability WebLoader adapts.
// *webclient.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// WebLoader adapts an HTTP client to the PageLoader interface.
type WebLoader struct {
	Client Fetcher
}

func (l *WebLoader) GetPage(ctx context.Context, url string) (*Document, error) {
	body, err := l.Client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Document{URL: url, Body: body}, nil
}
