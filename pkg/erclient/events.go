package erclient

import (
	"context"
	"io"
	"net/url"
)

// Events lists events matching params (state, event_type, updated_since, bbox, ...).
func (c *Client) Events(params Params, opts PageOptions) *Pager[Event] {
	return list[Event](c, epEvents, params, opts)
}

// GetEvent fetches one event. params accepts the include_* detail flags.
func (c *Client) GetEvent(ctx context.Context, id string, params Params) (*Event, error) {
	return do[*Event](ctx, c, c.request(epEvent, params, id))
}

func (c *Client) PostEvent(ctx context.Context, ev Event) (*Event, error) {
	req := c.request(epEventCreate, nil)
	req.JSON = ev
	return do[*Event](ctx, c, req)
}

// PatchEvent sends a partial update.
func (c *Client) PatchEvent(ctx context.Context, id string, patch map[string]any) (*Event, error) {
	req := c.request(epEventPatch, nil, id)
	req.JSON = patch
	return do[*Event](ctx, c, req)
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	_, err := c.transport.Call(ctx, c.request(epEventDelete, nil, id))
	return err
}

func (c *Client) PostEventNote(ctx context.Context, eventID, text string) (*Note, error) {
	req := c.request(epEventNote, nil, eventID)
	req.JSON = Note{Text: text}
	return do[*Note](ctx, c, req)
}

// PostEventFile attaches a file to an event as a multipart upload.
func (c *Client) PostEventFile(ctx context.Context, eventID, filename string, content io.Reader, comment string) (*FileRef, error) {
	req := c.request(epEventFile, nil, eventID)
	req.Files = []File{{Field: "filecontent.file", Name: filename, Content: content}}
	if comment != "" {
		req.Form = url.Values{"comment": {comment}}
	}
	return do[*FileRef](ctx, c, req)
}

func (c *Client) EventTypes(ctx context.Context, params Params) ([]EventType, error) {
	return do[[]EventType](ctx, c, c.request(epEventTypes, params))
}

func (c *Client) EventCategories(ctx context.Context, params Params) ([]EventCategory, error) {
	return do[[]EventCategory](ctx, c, c.request(epEventCategories, params))
}

// GetEventTypeFields returns the configured schema properties for an event type.
// A 404 here means no schema is configured for the type, so it yields an empty
// map rather than an error.
func (c *Client) GetEventTypeFields(ctx context.Context, eventType string) (map[string]any, error) {
	var schema struct {
		Schema struct {
			Properties map[string]any `json:"properties"`
		} `json:"schema"`
		Properties map[string]any `json:"properties"`
	}
	env, err := c.transport.Call(ctx, c.request(epEventTypeSchema, nil, eventType))
	if IsKind(err, KindNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := env.Decode(&schema); err != nil {
		return nil, err
	}
	if schema.Schema.Properties != nil {
		return schema.Schema.Properties, nil
	}
	if schema.Properties != nil {
		return schema.Properties, nil
	}
	return map[string]any{}, nil
}
