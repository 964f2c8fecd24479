package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nanobanana/internal/domain"
)

const (
	DefaultBaseURL = "http://localhost:5001"
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 64 << 20
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zerolog.Logger
}

// Client talks to the image transformation backend. Every call is a single
// attempt; retrying is left to the user.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger
	now        func() time.Time
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "transform").Logger()
	}
	return &Client{httpClient: client, baseURL: base, log: log, now: time.Now}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Transform posts the image and selection to /api/transform.
func (c *Client) Transform(ctx context.Context, req domain.TransformRequest) (*domain.TransformResult, error) {
	if c == nil {
		return nil, errors.New("transform client not configured")
	}
	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, domain.ErrNoImage
	}
	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, unexpectedError(err)
	}
	endpoint := c.baseURL + "/api/transform"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, unexpectedError(err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	c.log.Debug().Str("method", http.MethodPost).Str("url", endpoint).
		Str("style", req.Style).Bool("custom_prompt", req.CustomPrompt).
		Int("bytes", req.Image.Size()).Msg("transform request")

	start := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Msg("transform request failed without response")
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	var out Response
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out)
	if resp.StatusCode >= http.StatusBadRequest {
		var body *Response
		if decodeErr == nil {
			body = &out
		}
		e := serverError(resp.StatusCode, body)
		c.log.Warn().Int("status", resp.StatusCode).Str("message", e.Message).Msg("transform rejected by server")
		return nil, e
	}
	if decodeErr != nil {
		return nil, unexpectedError(fmt.Errorf("decode response: %w", decodeErr))
	}
	c.log.Info().Int("status", resp.StatusCode).Str("message", out.Message).
		Dur("elapsed", c.now().Sub(start)).Msg("transform response")
	if !out.Success {
		return nil, rejectedError(resp.StatusCode, &out)
	}
	if strings.TrimSpace(out.TransformedImage) == "" {
		return nil, unexpectedError(errors.New("response carried no image"))
	}

	result := &domain.TransformResult{
		Image:        out.TransformedImage,
		MIMEType:     out.MIMEType,
		Style:        out.Style,
		Prompt:       out.Prompt,
		CustomPrompt: out.IsCustomPrompt,
		Message:      out.Message,
		CreatedAt:    c.now(),
	}
	if result.MIMEType == "" {
		result.MIMEType = "image/png"
	}
	if result.Style == "" {
		result.Style = req.Style
	}
	if !result.CustomPrompt && req.CustomPrompt {
		result.CustomPrompt = true
	}
	if result.Prompt == "" && req.CustomPrompt {
		result.Prompt = strings.TrimSpace(req.Prompt)
	}
	return result, nil
}

// Health probes /api/health. It is an optional liveness check, never part of
// a transform.
func (c *Client) Health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("health check failed")
		return false, connectionError(err)
	}
	defer resp.Body.Close()
	var out healthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return false, fmt.Errorf("health: decode response: %w", err)
	}
	return resp.StatusCode < http.StatusBadRequest && out.Status == "ok", nil
}

func encodeForm(req domain.TransformRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := req.Image.Name
	if name == "" {
		name = "image." + domain.ExtensionForMIME(req.Image.ContentType)
	}
	contentType := req.Image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image.Data); err != nil {
		return nil, "", err
	}

	style := req.Style
	if style == "" {
		style = domain.DefaultStyle
	}
	fields := [][2]string{{"style", style}}
	prompt := strings.TrimSpace(req.Prompt)
	if req.CustomPrompt && prompt != "" {
		fields = append(fields, [2]string{"customPrompt", prompt}, [2]string{"useCustomPrompt", strconv.FormatBool(true)})
	} else {
		fields = append(fields, [2]string{"useCustomPrompt", strconv.FormatBool(false)})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
