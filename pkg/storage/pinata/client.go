// Package pinata pins files and JSON documents to IPFS through the Pinata
// pinning API.
package pinata

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
	"strings"
	"time"

	"github.com/nftennis/nftennis-backend/pkg/config"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

const (
	pinFilePath  = "/pinning/pinFileToIPFS"
	pinJSONPath  = "/pinning/pinJSONToIPFS"
	authTestPath = "/data/testAuthentication"
	pingTimeout  = 5 * time.Second
)

// Pinned describes a stored object.
type Pinned struct {
	CID  string
	Size int64
	// URL is the HTTP gateway address of the object.
	URL string
}

// APIError is a non-2xx answer from Pinata.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pinata: %d %s", e.Status, e.Body)
}

type Client struct {
	httpClient *http.Client
	apiURL     string
	gatewayURL string
	authorize  func(*http.Request)
}

func New(cfg config.PinataConfig, httpClient *http.Client) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("pinata api url is required")
	}
	var authorize func(*http.Request)
	switch {
	case cfg.JWT != "":
		authorize = func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+cfg.JWT) }
	case cfg.APIKey != "" && cfg.APISecret != "":
		authorize = func(r *http.Request) {
			r.Header.Set("pinata_api_key", cfg.APIKey)
			r.Header.Set("pinata_secret_api_key", cfg.APISecret)
		}
	default:
		return nil, errors.New("pinata credentials are required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		gatewayURL: strings.TrimRight(cfg.GatewayURL, "/"),
		authorize:  authorize,
	}, nil
}

// GatewayURL returns the HTTP URL for cid on the configured gateway.
func (c *Client) GatewayURL(cid string) string {
	return c.gatewayURL + "/" + cid
}

// Ping verifies the credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+authTestPath, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// PinFile streams r to IPFS as name. contentType is recorded on the part.
func (c *Client) PinFile(ctx context.Context, name, contentType string, r io.Reader) (Pinned, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		part, err := form.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = form.WriteField("pinataMetadata", fmt.Sprintf(`{"name":%q}`, name))
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+pinFilePath, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return Pinned{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.pin(req)
}

// PinJSON pins doc as a JSON object named name.
func (c *Client) PinJSON(ctx context.Context, name string, doc any) (Pinned, error) {
	payload, err := json.Marshal(map[string]any{
		"pinataContent":  doc,
		"pinataMetadata": map[string]string{"name": name},
	})
	if err != nil {
		return Pinned{}, fmt.Errorf("encode metadata: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+pinJSONPath, bytes.NewReader(payload))
	if err != nil {
		return Pinned{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.pin(req)
}

func (c *Client) pin(req *http.Request) (Pinned, error) {
	var out struct {
		IpfsHash string `json:"IpfsHash"`
		PinSize  int64  `json:"PinSize"`
	}
	if err := c.do(req, &out); err != nil {
		return Pinned{}, err
	}
	if out.IpfsHash == "" {
		return Pinned{}, errors.New("pinata: response without IpfsHash")
	}
	return Pinned{CID: out.IpfsHash, Size: out.PinSize, URL: c.GatewayURL(out.IpfsHash)}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinata request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode pinata response: %w", err)
	}
	return nil
}

// LogReady records the configured endpoints once at startup.
func (c *Client) LogReady(ctx context.Context, logg *logger.Logger) {
	if logg == nil {
		return
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"api": c.apiURL, "gateway": c.gatewayURL}), "pinata client initialized")
}
