package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// renderScript is executed inside ChromeDB. It loads the page, optionally
// waits for a selector that only appears once scripts have run, and
// returns the rendered HTML.
const renderScript = `module.exports = async ({ page, context }) => {
	await page.setViewport({ width: 1280, height: 800 });
	await page.setUserAgent('Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36');
	await page.goto(context.url, { timeout: context.timeout });
	if (context.waitFor) {
		await page.waitForSelector(context.waitFor, { timeout: context.timeout });
	} else {
		await page.waitForTimeout(2000);
	}
	return await page.content();
}`

// renderWithChromeDB fetches a script-driven page through a ChromeDB
// instance and returns the rendered HTML.
func renderWithChromeDB(ctx context.Context, chromeAddr, pageURL, waitFor string, timeout time.Duration) (io.Reader, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	payload := map[string]interface{}{
		"code": renderScript,
		"context": map[string]interface{}{
			"url":     pageURL,
			"waitFor": waitFor,
			"timeout": timeout.Milliseconds(),
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chromeAddr+"/function", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// The browser needs headroom beyond the page's own timeout
	client := &http.Client{Timeout: timeout + 10*time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read render response: %w", err)
	}

	content := string(body)

	// Some ChromeDB builds wrap the HTML in a JSON result object
	if strings.HasPrefix(strings.TrimSpace(content), "{") {
		var result map[string]interface{}
		if json.Unmarshal(body, &result) == nil {
			if data, ok := result["data"].(string); ok && data != "" {
				content = data
			} else if data, ok := result["result"].(string); ok && data != "" {
				content = data
			}
		}
	}

	if !strings.Contains(content, "<html") && !strings.Contains(content, "<body") {
		return nil, fmt.Errorf("render returned no HTML document")
	}

	return strings.NewReader(content), nil
}
