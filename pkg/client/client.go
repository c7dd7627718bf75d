package client

import (
	"fmt"
	"net/http"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/vidgate/yt-api/pkg/backend"
)

// Options tune a single client instance. The search backend gets a short
// timeout; the file downloader gets a long one.
type Options struct {
	// Proxy is an optional forward proxy URL (from the backend profile).
	Proxy string
	// TimeoutSeconds caps a whole request/response cycle (defaults to 600,
	// long videos take a while to pull).
	TimeoutSeconds int
}

type tlsWrapper struct {
	innerClient tls_client.HttpClient
}

func (w *tlsWrapper) Do(req *http.Request) (*http.Response, error) {
	fReq := &fhttp.Request{
		Method:        req.Method,
		URL:           req.URL,
		Proto:         req.Proto,
		ProtoMajor:    req.ProtoMajor,
		ProtoMinor:    req.ProtoMinor,
		Header:        make(fhttp.Header),
		Body:          req.Body,
		ContentLength: req.ContentLength,
		Host:          req.Host,
	}

	for k, v := range req.Header {
		fReq.Header[k] = v
	}

	if c := req.Header.Get("Cookie"); c != "" {
		fReq.Header.Set("Cookie", c)
	}

	resp, err := w.innerClient.Do(fReq)
	if err != nil {
		return nil, err
	}

	netResp := &http.Response{
		Status:           resp.Status,
		StatusCode:       resp.StatusCode,
		Proto:            resp.Proto,
		ProtoMajor:       resp.ProtoMajor,
		ProtoMinor:       resp.ProtoMinor,
		ContentLength:    resp.ContentLength,
		Body:             resp.Body,
		Header:           make(http.Header),
		Uncompressed:     resp.Uncompressed,
		TransferEncoding: resp.TransferEncoding,
	}

	for k, v := range resp.Header {
		netResp.Header[k] = v
	}

	return netResp, nil
}

// New builds an impersonating HTTP client satisfying backend.HTTPClient.
func New(opts Options) (backend.HTTPClient, error) {
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 600
	}

	jar := tls_client.NewCookieJar()

	clientOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(opts.TimeoutSeconds),
		tls_client.WithClientProfile(profiles.DefaultClientProfile),
		tls_client.WithInsecureSkipVerify(), // some CDN hosts serve proxied links without valid https
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithCookieJar(jar),
	}
	if opts.Proxy != "" {
		clientOpts = append(clientOpts, tls_client.WithProxyUrl(opts.Proxy))
	}

	c, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	return &tlsWrapper{innerClient: c}, nil
}
