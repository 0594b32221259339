package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"clubsite/internal/site/model"
)

func (c *Client) Content(ctx context.Context) (model.ClubContent, Source) {
	return Read(ctx, c, "content", model.ClubDefaults.Content(time.Now().UTC()))
}

func (c *Client) SaveContent(ctx context.Context, doc model.ClubContent) (WriteResult, error) {
	return Write(ctx, c, "content", doc)
}

func (c *Client) Events(ctx context.Context) (model.EventsData, Source) {
	return Read(ctx, c, "events", model.DefaultEvents())
}

func (c *Client) SaveEvents(ctx context.Context, doc model.EventsData) (WriteResult, error) {
	return Write(ctx, c, "events", doc)
}

func (c *Client) Links(ctx context.Context) (model.LinksData, Source) {
	return Read(ctx, c, "links", model.DefaultLinks())
}

func (c *Client) SaveLinks(ctx context.Context, doc model.LinksData) (WriteResult, error) {
	return Write(ctx, c, "links", doc)
}

func (c *Client) News(ctx context.Context) (model.NewsData, Source) {
	return Read(ctx, c, "news", model.DefaultNews())
}

func (c *Client) SaveNews(ctx context.Context, doc model.NewsData) (WriteResult, error) {
	return Write(ctx, c, "news", doc)
}

func (c *Client) EmailConfig(ctx context.Context) (model.EmailConfig, Source) {
	return Read(ctx, c, "email-config", model.ClubDefaults.EmailConfig(time.Now().UTC()))
}

func (c *Client) SaveEmailConfig(ctx context.Context, doc model.EmailConfig) (WriteResult, error) {
	return Write(ctx, c, "email-config", doc)
}

func (c *Client) Galleries(ctx context.Context) ([]model.GalleryMeta, Source) {
	return Read(ctx, c, "galleries", []model.GalleryMeta{})
}

// Gallery mutations go straight to the server; ids are assigned there, so
// there is nothing meaningful to cache when it is unreachable.

func (c *Client) CreateGallery(ctx context.Context, g model.GalleryMeta) (model.GalleryMeta, error) {
	var resp model.GalleryResponse
	// Every accepted POST inserts a new gallery, so it is sent once.
	if err := c.Do(singleAttempt(ctx), http.MethodPost, "/galleries", g, &resp); err != nil {
		return model.GalleryMeta{}, err
	}
	if resp.Gallery == nil {
		return model.GalleryMeta{}, &APIError{Status: http.StatusOK, Message: "response carried no gallery"}
	}
	return *resp.Gallery, nil
}

// UpdateGallery sends patch as a partial document.
func (c *Client) UpdateGallery(ctx context.Context, id string, patch map[string]any) error {
	return c.Do(ctx, http.MethodPut, "/galleries?galleryId="+url.QueryEscape(id), patch, nil)
}

func (c *Client) DeleteGallery(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/galleries?galleryId="+url.QueryEscape(id), nil, nil)
}

// Ping calls the status endpoint.
func (c *Client) Ping(ctx context.Context) (model.StatusResponse, error) {
	var st model.StatusResponse
	err := c.Do(ctx, http.MethodGet, "/test", nil, &st)
	return st, err
}
