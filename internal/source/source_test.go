package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fastestcars/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Timeline</title><style>body { color: red; }</style></head>
<body>
	<h1>World's fastest cars</h1>
	<script>var tracking = true;</script>
	<p>1949 Jaguar XK120 <b>200 km/h</b></p>
</body>
</html>`

func TestFetch(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.Header().Set("content-type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	tel := &telemetry.RecordingAPI{}
	fetcher, err := NewFetcher(srv.URL, tel)
	require.NoError(t, err)

	page, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	require.Equal(t, srv.URL, page.URL)
	require.Equal(t, samplePage, string(page.HTML))
	require.Equal(t, "Timeline World's fastest cars 1949 Jaguar XK120 200 km/h", page.Text)

	require.Equal(t, userAgent, headers.Get("User-Agent"))
	require.Equal(t, acceptLanguage, headers.Get("Accept-Language"))
	require.Equal(t, referer, headers.Get("Referer"))
	require.Empty(t, tel.Reports("broken"))
}

func TestFetchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<h1>Access denied</h1>"))
	}))
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	defer srv.Close()

	testCases := []struct {
		name string
		url  string
		html string
	}{
		{name: "non-2xx status", url: srv.URL, html: "<h1>Access denied</h1>"},
		{name: "connection refused", url: closed.URL},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tel := &telemetry.RecordingAPI{}
			fetcher, err := NewFetcher(test.url, tel)
			require.NoError(t, err)

			page, err := fetcher.Fetch(context.Background())
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrFetch), "got %v", err)
			require.True(t, tel.Has("broken", report_fetcher_fetch))
			require.Equal(t, test.html, string(page.HTML))
			require.Empty(t, page.Text)
		})
	}
}
