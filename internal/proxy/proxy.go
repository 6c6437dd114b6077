// Package proxy builds the outbound HTTP client shared by the Telegram,
// OpenAI and Perplexity clients.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds a single outbound request, including uploads of
// voice clips and downloads of documents.
const DefaultTimeout = 120 * time.Second

// NewHTTPClient returns an HTTP client that dials through the SOCKS5 proxy at
// socksAddr. An empty address yields a direct client.
func NewHTTPClient(socksAddr string) (*http.Client, error) {
	if socksAddr == "" {
		return &http.Client{Timeout: DefaultTimeout}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("creating socks5 dialer: %w", err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	slog.Info("outbound traffic routed via socks5", "proxy", socksAddr)
	return &http.Client{Transport: transport, Timeout: DefaultTimeout}, nil
}
