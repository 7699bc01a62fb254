package extraction

import (
	"context"
	"fmt"

	"fastestcars/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fastestcars/extraction")

const (
	report_client_complete = "client.complete"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Options struct {
	BaseURL string
	APIKey  string
	Model   string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client talks to an OpenAI compatible chat completions endpoint.
type Client struct {
	model string
	http  *resty.Client
	tel   telemetry.API
}

func NewClient(opts Options, tel telemetry.API) Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	tel = telemetry.NewScopedAPI("extraction", tel)

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}
	client.SetHeader("content-type", "application/json")
	telemetry.InstrumentResty(client, tel)

	return Client{
		model: opts.Model,
		http:  client,
		tel:   tel,
	}
}

// Extract sends the page text along with the extraction contract and returns
// the model's free-form response. A response without any message content is
// returned as an empty string.
func (c Client) Extract(ctx context.Context, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", c.model),
		attribute.Int("text_length", len(text)),
	)

	var out chatResponse
	var failure apiError
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []message{
				{Role: "system", Content: SystemPrompt},
				{Role: "user", Content: UserPrompt + text},
			},
		}).
		SetResult(&out).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make request")
		c.tel.ReportBroken(report_client_complete, err)
		return "", err
	}
	if res.IsError() {
		err = fmt.Errorf("chat completion returned %s: %s", res.Status(), failure.Error.Message)
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-2xx status code")
		c.tel.ReportBroken(report_client_complete, err)
		return "", err
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		c.tel.ReportWarning(report_client_complete, "response carried no message content")
		return "", nil
	}
	content := *out.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("response_length", len(content)))
	return content, nil
}
