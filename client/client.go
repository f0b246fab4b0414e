// Package client talks to a clumsy server over HTTP.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"clumsy/internal/api"
	"clumsy/internal/errors"
	"clumsy/internal/object"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// WriteFile uploads content into the server's worktree.
func (c *Client) WriteFile(path string, content []byte) error {
	req, err := http.NewRequest(http.MethodPut, c.url("/api/files/%s", url.PathEscape(path)), bytes.NewReader(content))
	if err != nil {
		return err
	}
	return c.do(req, http.StatusNoContent, nil)
}

func (c *Client) ReadFile(path string) ([]byte, error) {
	resp, err := c.httpClient.Get(c.url("/api/files/%s", url.PathEscape(path)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) Stage(path string) (object.Hash, error) {
	var result api.HashResponse
	if err := c.post("/api/index", api.StageRequest{Path: path}, http.StatusOK, &result); err != nil {
		return "", err
	}
	return result.Hash, nil
}

func (c *Client) Commit(message string) (object.Hash, error) {
	var result api.HashResponse
	if err := c.post("/api/commits", api.CommitRequest{Message: message}, http.StatusCreated, &result); err != nil {
		return "", err
	}
	return result.Hash, nil
}

func (c *Client) Log() ([]api.Commit, error) {
	var log []api.Commit
	if err := c.get("/api/log", &log); err != nil {
		return nil, err
	}
	return log, nil
}

func (c *Client) Restore(commit object.Hash, path string) error {
	return c.post("/api/restore", api.RestoreRequest{Commit: commit, Path: path}, http.StatusNoContent, nil)
}

func (c *Client) CatFile(h object.Hash) (*api.Object, error) {
	var o api.Object
	if err := c.get("/api/objects/"+h.String(), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, out)
}

func (c *Client) post(path string, body any, want int, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, want, out)
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns an error response back into a typed error when the
// server sent one.
func decodeError(resp *http.Response) error {
	var e errors.Error
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Type != "" {
		return &e
	}
	return fmt.Errorf("unexpected status: %s", resp.Status)
}
