package erclient

import (
	"context"
	"fmt"
	"io"
)

func (c *Client) Messages(params Params, opts PageOptions) *Pager[Message] {
	return list[Message](c, epMessages, params, opts)
}

func (c *Client) PostMessage(ctx context.Context, msg Message) (*Message, error) {
	req := c.request(epMessageCreate, nil)
	req.JSON = msg
	return do[*Message](ctx, c, req)
}

func (c *Client) AlertRules(ctx context.Context) ([]AlertRule, error) {
	return do[[]AlertRule](ctx, c, c.request(epAlertRules, nil))
}

func (c *Client) PostAlertRule(ctx context.Context, rule AlertRule) (*AlertRule, error) {
	req := c.request(epAlertRuleCreate, nil)
	req.JSON = rule
	return do[*AlertRule](ctx, c, req)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	return do[*User](ctx, c, c.request(epMe, nil))
}

// DownloadFile streams an attachment. fileURL is usually FileRef.URL; a
// relative path is resolved under the versioned API root. The caller closes the reader.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) (io.ReadCloser, string, error) {
	env, err := c.transport.Call(ctx, &Request{
		Endpoint: "files.download",
		Path:     fileURL,
		Stream:   true,
	})
	if err != nil {
		return nil, "", err
	}
	if env.Stream == nil {
		return nil, "", fmt.Errorf("download %s: empty response", fileURL)
	}
	return env.Stream, env.Header.Get("Content-Type"), nil
}
