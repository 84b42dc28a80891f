package utils

import (
	"net/http"
	"sync"
	"time"
)

var (
	httpClient *http.Client
	once       sync.Once
)

// GetHTTPClient returns the shared pooled client used for outbound alerts
func GetHTTPClient() *http.Client {
	once.Do(func() {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 15 * time.Second,
		}
	})
	return httpClient
}

// CloseHTTPClient drops idle pooled connections on shutdown
func CloseHTTPClient() {
	if httpClient == nil {
		return
	}
	if transport, ok := httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
