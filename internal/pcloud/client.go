// Package pcloud is a minimal client for the pCloud REST API covering what
// the bot needs: login, create-folder-if-absent, file upload, and public
// links with an expiry. Transient network failures are retried a bounded
// number of times with backoff; API-level errors are permanent.
package pcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/you/ytb2mp3/internal/logx"
)

const DefaultBaseURL = "https://api.pcloud.com"

var (
	// ErrAuth means pCloud rejected the credentials or token. Never retried.
	ErrAuth = errors.New("pcloud: authentication failed")
)

// APIError is a non-zero result code from pCloud. These are permanent.
type APIError struct {
	Method string
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pcloud %s: result %d: %s", e.Method, e.Code, e.Msg)
}

// LinkError means the upload succeeded but the share link could not be
// created. RemotePath tells the user where the file ended up.
type LinkError struct {
	RemotePath string
	Err        error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("pcloud: uploaded to %s but link failed: %v", e.RemotePath, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// Result is what a successful Store returns.
type Result struct {
	RemotePath string
	Link       string
	Expiry     time.Time
}

type Client struct {
	BaseURL    string
	Username   string
	Password   string
	BaseFolder string
	ExpireDays int

	HTTP      *http.Client
	Retries   int           // attempts per request, default 3
	RetryWait time.Duration // first backoff step, doubled per attempt, default 1s

	mu   sync.Mutex
	auth string
}

func New(username, password, baseFolder string, expireDays int) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		Username:   username,
		Password:   password,
		BaseFolder: baseFolder,
		ExpireDays: expireDays,
		HTTP:       &http.Client{Timeout: 5 * time.Minute},
		Retries:    3,
		RetryWait:  time.Second,
	}
}

type apiResponse struct {
	Result   int             `json:"result"`
	Error    string          `json:"error"`
	Auth     string          `json:"auth"`
	Link     string          `json:"link"`
	Metadata json.RawMessage `json:"metadata"`
	FileIDs  []int64         `json:"fileids"`
}

type folderMeta struct {
	FolderID int64  `json:"folderid"`
	Path     string `json:"path"`
}

type fileMeta struct {
	FileID int64  `json:"fileid"`
	Path   string `json:"path"`
	Name   string `json:"name"`
}

// doGet performs one API method with bounded retry on transport errors.
func (c *Client) doGet(ctx context.Context, method string, params url.Values) (*apiResponse, error) {
	u := c.BaseURL + "/" + method + "?" + params.Encode()
	var lastErr error
	for attempt := 0; attempt < c.attempts(); attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.RetryWait<<(attempt-1)); err != nil {
				return nil, err
			}
			l := logx.FromCtx(ctx)
			l.Warn().Str("method", method).Int("attempt", attempt+1).Msg("pcloud retry")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.do(req, method)
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("pcloud %s: %w", method, lastErr)
}

func (c *Client) do(req *http.Request, method string) (*apiResponse, error) {
	httpResp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("server error: %s", httpResp.Status)
	}
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Result != 0 {
		// 1000/2000-range codes cover missing/failed auth.
		if resp.Result == 1000 || resp.Result == 2000 {
			return nil, fmt.Errorf("%w: result %d: %s", ErrAuth, resp.Result, resp.Error)
		}
		return nil, &APIError{Method: method, Code: resp.Result, Msg: resp.Error}
	}
	return &resp, nil
}

func (c *Client) attempts() int {
	if c.Retries < 1 {
		return 1
	}
	return c.Retries
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Login obtains an auth token. Credential failures map to ErrAuth and are
// never retried at the request layer beyond transport errors.
func (c *Client) Login(ctx context.Context) error {
	params := url.Values{}
	params.Set("getauth", "1")
	params.Set("username", c.Username)
	params.Set("password", c.Password)
	resp, err := c.doGet(ctx, "userinfo", params)
	if err != nil {
		return err
	}
	if resp.Auth == "" {
		return fmt.Errorf("%w: no token returned", ErrAuth)
	}
	c.mu.Lock()
	c.auth = resp.Auth
	c.mu.Unlock()
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.auth
	c.mu.Unlock()
	if tok != "" {
		return tok, nil
	}
	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth, nil
}

// EnsureFolder creates the folder at path if absent and returns its id.
// Idempotent: an existing folder is not an error.
func (c *Client) EnsureFolder(ctx context.Context, folderPath string) (int64, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("auth", tok)
	params.Set("path", folderPath)
	resp, err := c.doGet(ctx, "createfolderifnotexists", params)
	if err != nil {
		return 0, err
	}
	var meta folderMeta
	if err := json.Unmarshal(resp.Metadata, &meta); err != nil {
		return 0, fmt.Errorf("pcloud createfolderifnotexists: decode metadata: %w", err)
	}
	return meta.FolderID, nil
}

// Upload sends a local file into the given folder and returns its file id
// and remote path.
func (c *Client) Upload(ctx context.Context, folderID int64, localPath string) (int64, string, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return 0, "", err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return 0, "", fmt.Errorf("pcloud upload: read %s: %w", localPath, err)
	}
	name := filepath.Base(localPath)

	var lastErr error
	for attempt := 0; attempt < c.attempts(); attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.RetryWait<<(attempt-1)); err != nil {
				return 0, "", err
			}
			l := logx.FromCtx(ctx)
			l.Warn().Int("attempt", attempt+1).Msg("pcloud upload retry")
		}
		resp, err := c.uploadOnce(ctx, tok, folderID, name, data)
		if err != nil {
			if errors.Is(err, ErrAuth) {
				return 0, "", err
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return 0, "", err
			}
			lastErr = err
			continue
		}
		var metas []fileMeta
		if err := json.Unmarshal(resp.Metadata, &metas); err != nil || len(metas) == 0 {
			return 0, "", fmt.Errorf("pcloud upload: unexpected metadata")
		}
		return metas[0].FileID, metas[0].Path, nil
	}
	return 0, "", fmt.Errorf("pcloud upload: %w", lastErr)
}

func (c *Client) uploadOnce(ctx context.Context, tok string, folderID int64, name string, data []byte) (*apiResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("auth", tok)
	params.Set("folderid", strconv.FormatInt(folderID, 10))
	params.Set("filename", name)
	u := c.BaseURL + "/uploadfile?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, "uploadfile")
}

// PublicLink requests a shareable download link expiring at the given time.
func (c *Client) PublicLink(ctx context.Context, fileID int64, expire time.Time) (string, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("auth", tok)
	params.Set("fileid", strconv.FormatInt(fileID, 10))
	params.Set("expire", strconv.FormatInt(expire.Unix(), 10))
	resp, err := c.doGet(ctx, "getfilepublink", params)
	if err != nil {
		return "", err
	}
	if resp.Link == "" {
		return "", fmt.Errorf("pcloud getfilepublink: empty link")
	}
	return resp.Link, nil
}

// Store runs the full relay for one file: ensure the dated subfolder,
// upload, request a link. An upload that succeeds but whose link request
// fails returns *LinkError so the caller can tell the user the file exists.
func (c *Client) Store(ctx context.Context, localPath string, now time.Time) (*Result, error) {
	folder := path.Join("/", c.BaseFolder, now.Format("2006-01-02"))
	folderID, err := c.EnsureFolder(ctx, folder)
	if err != nil {
		return nil, err
	}
	fileID, remotePath, err := c.Upload(ctx, folderID, localPath)
	if err != nil {
		return nil, err
	}
	if remotePath == "" {
		remotePath = path.Join(folder, filepath.Base(localPath))
	}
	expiry := now.AddDate(0, 0, c.ExpireDays)
	link, err := c.PublicLink(ctx, fileID, expiry)
	if err != nil {
		return nil, &LinkError{RemotePath: remotePath, Err: err}
	}
	return &Result{RemotePath: remotePath, Link: link, Expiry: expiry}, nil
}
