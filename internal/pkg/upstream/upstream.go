// Package upstream holds the HTTP plumbing shared by the payment and SMM
// provider clients: a pooled client with a hard per-call timeout and error
// classification into timeout / network / status failures.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"time"
)

const DefaultTimeout = 15 * time.Second

var (
	// ErrTimeout is returned when the provider did not answer in time.
	// Handlers that propagate it answer 504.
	ErrTimeout = errors.New("upstream timeout")
	// ErrNetwork is returned for connection level failures.
	ErrNetwork = errors.New("upstream network error")
	// ErrStatus is returned for non-2xx answers.
	ErrStatus = errors.New("upstream returned non-success status")
	// ErrMalformed is returned when the body cannot be decoded.
	ErrMalformed = errors.New("upstream returned malformed response")
)

// NewHTTPClient creates a pooled HTTP client bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Classify wraps a transport error from http.Client.Do with ErrTimeout or
// ErrNetwork so callers can branch with errors.Is.
func Classify(ctx context.Context, service string, err error) error {
	if isTimeoutError(ctx, err) {
		return fmt.Errorf("%s: %w: %v", service, ErrTimeout, err)
	}
	if isNetworkError(err) {
		return fmt.Errorf("%s: %w: %v", service, ErrNetwork, err)
	}
	return fmt.Errorf("%s request error: %w", service, err)
}

// StatusError builds an ErrStatus error that carries the status code and a
// truncated body.
func StatusError(service string, status int, body []byte) error {
	const maxBody = 512
	if len(body) > maxBody {
		body = append(body[:maxBody:maxBody], "..."...)
	}
	return fmt.Errorf("%s: %w: status=%d body=%s", service, ErrStatus, status, string(body))
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}

	return false
}
