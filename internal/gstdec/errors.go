package gstdec

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies GStreamer errors for log telemetry. The engine
// treats every failure as the same transient connectivity loss; the
// category only helps operators tell a flaky network from bad credentials.
type ErrorCategory int

const (
	// CategoryNetwork covers connection, timeout and DNS failures
	CategoryNetwork ErrorCategory = iota
	// CategoryCodec covers decode and format negotiation failures
	CategoryCodec
	// CategoryAuth covers authentication and authorization failures
	CategoryAuth
	// CategoryUnknown covers everything else
	CategoryUnknown
)

// String returns the category name used in log fields.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryCodec:
		return "codec"
	case CategoryAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Keyword tables, matched in priority order: auth first (most specific),
// then codec, then network (most common). go-gst's GError does not expose
// the error domain, so string heuristics are all we have.
var (
	authKeywords = []string{
		"unauthorized", "401", "403", "forbidden",
		"authentication", "credentials", "password", "username",
	}
	codecKeywords = []string{
		"codec", "decode", "format", "negotiation", "caps",
		"h264", "h265", "not negotiated", "not-negotiated",
		"no decoder", "missing plugin",
	}
	networkKeywords = []string{
		"connection", "timeout", "unreachable", "network",
		"dns", "resolve", "socket", "tcp", "udp", "rtsp",
		"not found", "could not connect", "failed to connect",
	}
)

// Classify categorizes a GStreamer error by message heuristics.
func Classify(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return CategoryUnknown
	}
	return ClassifyMessage(gerr.Error() + " " + gerr.DebugString())
}

// ClassifyMessage categorizes a raw error message string.
func ClassifyMessage(msg string) ErrorCategory {
	combined := strings.ToLower(msg)

	for _, kw := range authKeywords {
		if strings.Contains(combined, kw) {
			return CategoryAuth
		}
	}
	for _, kw := range codecKeywords {
		if strings.Contains(combined, kw) {
			return CategoryCodec
		}
	}
	for _, kw := range networkKeywords {
		if strings.Contains(combined, kw) {
			return CategoryNetwork
		}
	}
	return CategoryUnknown
}
