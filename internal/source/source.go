package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"time"

	"fastestcars/lib/htmlutil"
	"fastestcars/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fastestcars/source")

const (
	report_fetcher_fetch = "fetcher.fetch"
)

const (
	DefaultURL     = "https://www.dubizzle.com/blog/cars/timeline-worlds-fastest-cars/"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	acceptLanguage = "en-US,en;q=0.9"
	referer        = "https://www.google.com/"
	fetchTimeout   = 30 * time.Second
)

// ErrFetch wraps every failure to retrieve the source page, it is the only
// error that aborts an ingestion run.
var ErrFetch = errors.New("failed to fetch source page")

// Page is a fetched source document.
type Page struct {
	URL  string
	HTML []byte
	// Text is the visible text of the page, whitespace separated.
	Text string
}

type Fetcher struct {
	url  string
	http *resty.Client
	tel  telemetry.API
}

func NewFetcher(url string, tel telemetry.API) (Fetcher, error) {
	if url == "" {
		url = DefaultURL
	}
	tel = telemetry.NewScopedAPI("source", tel)

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return Fetcher{}, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept-Language", acceptLanguage)
	client.SetHeader("Referer", referer)
	client.SetTimeout(fetchTimeout)

	telemetry.InstrumentResty(client, tel)

	return Fetcher{
		url:  url,
		http: client,
		tel:  tel,
	}, nil
}

// Fetch retrieves the configured page and extracts its visible text. On a
// non-2xx status the returned page carries the error body and no text.
func (f Fetcher) Fetch(ctx context.Context) (Page, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", f.url))

	res, err := f.http.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make request")
		f.tel.ReportBroken(report_fetcher_fetch, err, f.url)
		return Page{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if res.IsError() {
		err = fmt.Errorf("%w: %s returned %s", ErrFetch, f.url, res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-2xx status code")
		f.tel.ReportBroken(report_fetcher_fetch, err, f.url)
		// the error page is returned without text so it can still be saved
		return Page{URL: f.url, HTML: res.Body()}, err
	}

	body := res.Body()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		f.tel.ReportBroken(report_fetcher_fetch, err, f.url)
		return Page{}, fmt.Errorf("%w: parse html: %w", ErrFetch, err)
	}

	text := htmlutil.PageText(doc)
	span.SetAttributes(attribute.Int("text_length", len(text)))
	f.tel.ReportDebug("fetched page", "url", f.url, "bytes", len(body), "text_length", len(text))

	return Page{
		URL:  f.url,
		HTML: body,
		Text: text,
	}, nil
}
