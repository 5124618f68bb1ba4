package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultIPFSAPI is the address of a local IPFS node's HTTP API.
const DefaultIPFSAPI = "http://localhost:5001"

// IPFSStore stores documents on an IPFS node through its HTTP API.
// References are the CIDs the node returns.
type IPFSStore struct {
	apiURL     string
	httpClient *http.Client
}

// NewIPFSStore creates a store talking to the node at apiURL.
// An empty apiURL selects DefaultIPFSAPI.
func NewIPFSStore(apiURL string, httpClient *http.Client) *IPFSStore {
	if apiURL == "" {
		apiURL = DefaultIPFSAPI
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &IPFSStore{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: httpClient,
	}
}

type ipfsAddResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Put adds data to IPFS with /api/v0/add.
func (s *IPFSStore) Put(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "document")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/api/v0/add", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ipfs add failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var added ipfsAddResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", fmt.Errorf("ipfs add: decoding response: %w", err)
	}
	if added.Hash == "" {
		return "", fmt.Errorf("ipfs add: empty hash in response")
	}
	return added.Hash, nil
}

// Get reads a document with /api/v0/cat.
func (s *IPFSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	endpoint := s.apiURL + "/api/v0/cat?arg=" + url.QueryEscape(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(respBody))
		if resp.StatusCode == http.StatusNotFound || strings.Contains(msg, "not found") {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("ipfs cat failed (%d): %s", resp.StatusCode, msg)
	}

	return io.ReadAll(resp.Body)
}
