package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tonearm/internal/codec"
	"github.com/starford/tonearm/internal/library"
)

const maxDownloadSize = 100 << 20 // 100 MB

var safeFilenameRe = regexp.MustCompile(`[^\p{L}\p{N} ._()-]`)

func (s *Server) importURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filename := ""
	if v, fErr := req.RequireString("filename"); fErr == nil {
		filename = v
	}

	var data []byte
	if strings.HasPrefix(rawURL, "data:") {
		data, err = decodeDataURI(rawURL)
	} else {
		data, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxDownloadSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxDownloadSize)), nil
	}

	kind, ok := codec.Sniff(data)
	if !ok {
		return mcp.NewToolResultError("content is not a supported audio file (mp3, flac, ogg, wav)"), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL)
	}
	filename = sanitizeFilename(filename, kind)

	mediaType := library.TypeByName(filename)
	added, err := s.svc.Import(ctx, []library.File{library.BytesFile(filename, mediaType, data)}, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(added) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("already in library: %s", filename)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported: %s\t%s", added[0].ID, added[0].Title)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	if mt := strings.Split(meta, ";")[0]; mt != "" && !library.IsAudio(mt) && mt != "application/ogg" {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mt)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 2 * time.Minute,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", maxDownloadSize)
	}
	return data, nil
}

// checkBlockedHost rejects loopback, private, link-local and cloud metadata
// addresses. Every resolved address is checked.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ips = resolved
	}

	for _, ip := range ips {
		if reason := blockedIP(ip); reason != "" {
			return fmt.Errorf("blocked host: %s address %s", reason, host)
		}
	}
	return nil
}

func blockedIP(ip net.IP) string {
	switch {
	case ip.IsLoopback() || ip.IsUnspecified():
		return "loopback"
	case ip.IsPrivate():
		return "private"
	// Covers the AWS/GCP/Azure metadata endpoint 169.254.169.254.
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return "link-local"
	}
	return ""
}

// filenameFromURL takes the last path segment, falling back to a UUID.
func filenameFromURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "data:") {
		return uuid.New().String()
	}
	parsed, err := url.Parse(rawURL)
	if err == nil {
		base := path.Base(parsed.Path)
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	return uuid.New().String()
}

// sanitizeFilename strips path separators and unsafe characters and makes
// the extension agree with the sniffed container.
func sanitizeFilename(name string, kind codec.Kind) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" {
		name = uuid.New().String()
	}
	if k, err := codec.Detect("", name); err != nil || k != kind {
		name += codec.Ext(kind)
	}
	return name
}
