// Package checkin builds the scannable check-in code embedded in booking
// confirmations. The image itself is rendered by an external QR service.
package checkin

import (
	"fmt"
	"net/url"
)

const (
	DefaultBaseURL = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultSize    = 200
)

type Builder struct {
	BaseURL string
	Size    int
}

func NewBuilder(baseURL string, size int) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Builder{BaseURL: baseURL, Size: size}
}

// URL returns the image URL encoding payload as a QR code.
func (b *Builder) URL(payload string) string {
	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", b.Size, b.Size))
	q.Set("data", payload)
	return b.BaseURL + "?" + q.Encode()
}
