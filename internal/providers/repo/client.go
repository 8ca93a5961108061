package repo

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/internal/providers/modhost"
	"github.com/sandevgo/modbot/pkg/retry"
)

const (
	searchPath   = "/api/v1/search"
	downloadPath = "/api/v1/download"

	defaultTimeout = 30 * time.Second

	searchCacheEntries = 50
	searchCacheTTL     = 60 * time.Second
)

var _ core.ModRepository = (*Client)(nil)

// Client talks to the mod registry. Search results come back in catalog
// order, installs land as one directory per mod under the mods path.
type Client struct {
	baseURL    string
	authToken  string
	maxArchive int64
	modsDir    string

	client  *http.Client
	retrier *retry.Retrier
	cache   *SearchCache
}

func NewClient(cfg core.RegistryConfig, app core.AppConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetBaseURL(), "/"),
		authToken:  cfg.GetToken(),
		maxArchive: cfg.GetMaxArchiveBytes(),
		modsDir:    app.GetModsPath(),
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		// Chat commands wait on these calls, the retry budget stays short.
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    2,
			BackoffFactor: 2,
			InitialDelay:  250 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			Jitter:        50 * time.Millisecond,
		}),
		cache: NewSearchCache(searchCacheEntries, searchCacheTTL),
	}
}

func (c *Client) Search(ctx context.Context, terms string) (*core.SearchResult, error) {
	if cached, ok := c.cache.Get(terms); ok {
		return cached, nil
	}

	u, err := url.Parse(c.baseURL + searchPath)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	q := u.Query()
	q.Set("q", terms)
	u.RawQuery = q.Encode()

	body, err := c.doGet(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("mod search failed: %w", err)
	}

	result := &core.SearchResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if result.Mods == nil {
		result.Mods = make(map[string]core.ModInfo)
	}

	c.cache.Put(terms, result)
	return result, nil
}

func (c *Client) Install(ctx context.Context, modID string) error {
	if !isSafeModID(modID) {
		return fmt.Errorf("invalid mod id: %q", modID)
	}

	target := filepath.Join(c.modsDir, modID)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("mod %q is already installed", modID)
	}

	u, err := url.Parse(c.baseURL + downloadPath)
	if err != nil {
		return fmt.Errorf("invalid registry URL: %w", err)
	}
	q := u.Query()
	q.Set("mod", modID)
	u.RawQuery = q.Encode()

	data, err := c.doGet(ctx, u.String())
	if err != nil {
		return fmt.Errorf("failed to download mod %q: %w", modID, err)
	}
	if int64(len(data)) > c.maxArchive {
		return fmt.Errorf("mod archive too large: %d bytes (max %d)", len(data), c.maxArchive)
	}

	if err := extractArchive(data, target); err != nil {
		os.RemoveAll(target)
		return fmt.Errorf("failed to install mod %q: %w", modID, err)
	}

	// Every installable mod ships a manifest at the archive root.
	if _, err := os.Stat(filepath.Join(target, modhost.ManifestFile)); err != nil {
		os.RemoveAll(target)
		return fmt.Errorf("mod %q archive is missing %s", modID, modhost.ManifestFile)
	}

	return nil
}

func (c *Client) Uninstall(ctx context.Context, modID string) error {
	if !isSafeModID(modID) {
		return fmt.Errorf("invalid mod id: %q", modID)
	}

	target := filepath.Join(c.modsDir, modID)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return fmt.Errorf("mod %q is not installed", modID)
	}

	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove mod %q: %w", modID, err)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, urlStr string) ([]byte, error) {
	var body []byte
	err := c.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", core.BotUserAgent)
		if c.authToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxArchive+1))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("registry returned HTTP %d", resp.StatusCode)
		}

		body = data
		return nil
	})
	return body, err
}

func extractArchive(data []byte, targetDir string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("invalid archive: %w", err)
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create mod directory: %w", err)
	}
	cleanTarget := filepath.Clean(targetDir)

	for _, f := range reader.File {
		cleanName := filepath.Clean(f.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return fmt.Errorf("archive entry has unsafe path: %q", f.Name)
		}

		destPath := filepath.Join(cleanTarget, cleanName)
		if destPath != cleanTarget && !strings.HasPrefix(destPath, cleanTarget+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes mod directory: %q", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open archive entry %q: %w", f.Name, err)
		}

		out, err := os.Create(destPath)
		if err != nil {
			rc.Close()
			return fmt.Errorf("failed to create file %q: %w", destPath, err)
		}

		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return fmt.Errorf("failed to extract %q: %w", f.Name, err)
		}
	}

	return nil
}

// isSafeModID rejects ids that could escape the mods directory.
func isSafeModID(modID string) bool {
	modID = strings.TrimSpace(modID)
	if modID == "" {
		return false
	}
	if strings.ContainsAny(modID, `/\`) || strings.Contains(modID, "..") {
		return false
	}
	return true
}
