// Package relay talks to the central relay server that stores and serves
// raw transactions and blocks for every currency.
package relay

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Item type codes used by the relay API.
const (
	itemTransaction = "T"
	itemBlock       = "B"
)

// frameMagic starts every item in a download stream.
const frameMagic = 123456789

// maxItemSize bounds a single downloaded item. Anything larger is a corrupt
// or hostile stream.
const maxItemSize = 16 << 20

// Relay errors.
var (
	ErrBadFrame       = errors.New("malformed download frame")
	ErrUploadRejected = errors.New("upload rejected by relay")
)

// Client is an HTTP client for the relay API. Downloads are GET requests
// returning a stream of length-prefixed items; uploads are form-encoded POST
// requests answered with an "OK" line.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      zerolog.Logger
}

// NewClient creates a relay client for the given endpoint. The API key is
// only needed for uploads.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		log:      logger,
	}
}

// DownloadTransactions fetches raw transactions for a currency. When
// pastSeconds is positive only items uploaded that recently are returned;
// zero fetches everything.
func (c *Client) DownloadTransactions(ctx context.Context, currency string, pastSeconds int) ([][]byte, error) {
	return c.download(ctx, itemTransaction, currency, pastSeconds)
}

// DownloadBlocks fetches raw blocks for a currency.
func (c *Client) DownloadBlocks(ctx context.Context, currency string, pastSeconds int) ([][]byte, error) {
	return c.download(ctx, itemBlock, currency, pastSeconds)
}

// UploadTransaction publishes a raw transaction.
func (c *Client) UploadTransaction(ctx context.Context, currency string, raw []byte) error {
	return c.upload(ctx, itemTransaction, currency, raw)
}

// UploadBlock publishes a raw block.
func (c *Client) UploadBlock(ctx context.Context, currency string, raw []byte) error {
	return c.upload(ctx, itemBlock, currency, raw)
}

// download issues the GET request and parses the item stream. Each item is
// framed as magic(4) | length(4) | payload, big endian.
func (c *Client) download(ctx context.Context, item, currency string, pastSeconds int) ([][]byte, error) {
	query := url.Values{}
	query.Set("action", "download")
	query.Set("item", item)
	query.Set("currency", currency)
	if pastSeconds > 0 {
		query.Set("recent", strconv.Itoa(pastSeconds))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download from relay: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned status %s", resp.Status)
	}

	items, err := readFrames(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("item", item).
		Str("currency", currency).
		Int("count", len(items)).
		Msg("downloaded items")
	return items, nil
}

// readFrames parses the length-prefixed item stream until EOF. EOF is only
// clean at a frame boundary.
func readFrames(r io.Reader) ([][]byte, error) {
	var items [][]byte
	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return items, nil
			}
			return nil, fmt.Errorf("%w: truncated header", ErrBadFrame)
		}
		if magic := int32(binary.BigEndian.Uint32(header[:4])); magic != frameMagic {
			return nil, fmt.Errorf("%w: magic %d", ErrBadFrame, magic)
		}
		length := int32(binary.BigEndian.Uint32(header[4:]))
		if length < 0 || length > maxItemSize {
			return nil, fmt.Errorf("%w: item length %d", ErrBadFrame, length)
		}
		item := make([]byte, length)
		if _, err := io.ReadFull(r, item); err != nil {
			return nil, fmt.Errorf("%w: truncated item", ErrBadFrame)
		}
		items = append(items, item)
	}
}

// upload issues the form-encoded POST request. The relay answers a bare
// "OK" line on success and an explanation otherwise.
func (c *Client) upload(ctx context.Context, item, currency string, raw []byte) error {
	form := url.Values{}
	form.Set("action", "upload")
	form.Set("item", item)
	form.Set("currency", currency)
	form.Set("apikey", c.apiKey)
	form.Set("data", base64.URLEncoding.EncodeToString(raw))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload to relay: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read upload response: %w", err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(body)), "\n")
	if resp.StatusCode != http.StatusOK || line != "OK" {
		return fmt.Errorf("%w: %s", ErrUploadRejected, line)
	}
	c.log.Debug().
		Str("item", item).
		Str("currency", currency).
		Int("bytes", len(raw)).
		Msg("uploaded item")
	return nil
}
