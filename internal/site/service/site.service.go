package service

import (
	"context"
	"encoding/json"
	"time"

	"clubsite/internal/site/model"
	"clubsite/internal/store"
)

// Resource names; each is stored under "<prefix>:<name>".
const (
	ContentResource     = "content"
	EventsResource      = "events"
	GalleriesResource   = "galleries"
	LinksResource       = "links"
	NewsResource        = "news"
	EmailConfigResource = "email-config"
)

type Options struct {
	Defaults model.Defaults
	// LegacyEncoding keeps writing content and events JSON-encoded twice,
	// for readers that still expect the old format.
	LegacyEncoding bool
}

type SiteService struct {
	Store     *store.Store
	Defaults  model.Defaults
	Galleries *store.List[model.GalleryMeta]

	content     store.Resource[model.ClubContent]
	events      store.Resource[model.EventsData]
	links       store.Resource[model.LinksData]
	news        store.Resource[model.NewsData]
	emailConfig store.Resource[model.EmailConfig]
}

func NewSiteService(st *store.Store, opts Options) *SiteService {
	d := opts.Defaults
	layers := 1
	if opts.LegacyEncoding {
		layers = 2
	}
	now := func() time.Time { return time.Now().UTC() }

	return &SiteService{
		Store:    st,
		Defaults: d,
		content: store.Resource[model.ClubContent]{
			Name:     ContentResource,
			Layers:   layers,
			Default:  func() model.ClubContent { return d.Content(now()) },
			Validate: (*model.ClubContent).Validate,
			Stamp:    func(c *model.ClubContent, t time.Time) { c.LastUpdated = t },
		},
		events: store.Resource[model.EventsData]{
			Name:     EventsResource,
			Layers:   layers,
			Default:  model.DefaultEvents,
			Validate: (*model.EventsData).Validate,
			Stamp:    func(e *model.EventsData, t time.Time) { e.LastUpdated = &t },
		},
		links: store.Resource[model.LinksData]{
			Name:     LinksResource,
			Default:  model.DefaultLinks,
			Validate: func(l *model.LinksData) error { return model.Validate(l) },
			Stamp:    func(l *model.LinksData, t time.Time) { l.LastUpdated = &t },
		},
		news: store.Resource[model.NewsData]{
			Name:     NewsResource,
			Default:  model.DefaultNews,
			Validate: func(n *model.NewsData) error { return model.Validate(n) },
			Stamp:    func(n *model.NewsData, t time.Time) { n.LastUpdated = &t },
		},
		emailConfig: store.Resource[model.EmailConfig]{
			Name:    EmailConfigResource,
			Default: func() model.EmailConfig { return d.EmailConfig(now()) },
			Validate: func(c *model.EmailConfig) error {
				if c.SubjectPrefix == "" {
					c.SubjectPrefix = d.SubjectPrefix()
				}
				return model.Validate(c)
			},
			Stamp: func(c *model.EmailConfig, t time.Time) { c.LastUpdated = t },
		},
		Galleries: &store.List[model.GalleryMeta]{
			Store:    st,
			Name:     GalleriesResource,
			IDPrefix: "gallery",
			Layers:   1,
			ID:       func(g *model.GalleryMeta) string { return g.ID },
			Assign: func(g *model.GalleryMeta, id string, at time.Time) {
				g.ID = id
				g.CreatedAt = at
			},
			Validate:  (*model.GalleryMeta).Validate,
			Protected: []string{"id", "createdAt"},
		},
	}
}

func (s *SiteService) Content(ctx context.Context) model.ClubContent {
	c := store.Read(ctx, s.Store, s.content)
	model.MigrateContent(&c)
	return c
}

func (s *SiteService) SaveContent(ctx context.Context, c model.ClubContent) (model.ClubContent, error) {
	return store.Write(ctx, s.Store, s.content, c)
}

func (s *SiteService) Events(ctx context.Context) model.EventsData {
	e := store.Read(ctx, s.Store, s.events)
	if e.RecurringEvents == nil {
		e.RecurringEvents = []model.RecurringEvent{}
	}
	if e.SpecialEvents == nil {
		e.SpecialEvents = []model.SpecialEvent{}
	}
	return e
}

func (s *SiteService) SaveEvents(ctx context.Context, e model.EventsData) (model.EventsData, error) {
	return store.Write(ctx, s.Store, s.events, e)
}

func (s *SiteService) Links(ctx context.Context) model.LinksData {
	l := store.Read(ctx, s.Store, s.links)
	if l.Links == nil {
		l.Links = []model.Link{}
	}
	return l
}

func (s *SiteService) SaveLinks(ctx context.Context, l model.LinksData) (model.LinksData, error) {
	return store.Write(ctx, s.Store, s.links, l)
}

func (s *SiteService) News(ctx context.Context) model.NewsData {
	n := store.Read(ctx, s.Store, s.news)
	if n.NewsItems == nil {
		n.NewsItems = []model.NewsItem{}
	}
	return n
}

func (s *SiteService) SaveNews(ctx context.Context, n model.NewsData) (model.NewsData, error) {
	return store.Write(ctx, s.Store, s.news, n)
}

// EmailConfig always returns a usable configuration; missing fields of a
// stored document are filled from the defaults.
func (s *SiteService) EmailConfig(ctx context.Context) model.EmailConfig {
	c := store.Read(ctx, s.Store, s.emailConfig)
	if c.InquiryEmail == "" {
		c.InquiryEmail = s.Defaults.InquiryEmail
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = s.Defaults.SubjectPrefix()
	}
	return c
}

// HasEmailConfig reports whether an email configuration has been saved.
func (s *SiteService) HasEmailConfig(ctx context.Context) bool {
	_, src, _ := store.Load(ctx, s.Store, s.emailConfig)
	return src == store.FromStore
}

func (s *SiteService) SaveEmailConfig(ctx context.Context, c model.EmailConfig) (model.EmailConfig, error) {
	return store.Write(ctx, s.Store, s.emailConfig, c)
}

func (s *SiteService) ListGalleries(ctx context.Context) []model.GalleryMeta {
	return s.Galleries.All(ctx)
}

func (s *SiteService) CreateGallery(ctx context.Context, g model.GalleryMeta) (model.GalleryMeta, error) {
	return s.Galleries.Insert(ctx, g)
}

func (s *SiteService) UpdateGallery(ctx context.Context, id string, patch json.RawMessage) (model.GalleryMeta, error) {
	return s.Galleries.Update(ctx, id, patch)
}

func (s *SiteService) DeleteGallery(ctx context.Context, id string) error {
	return s.Galleries.Delete(ctx, id)
}

// DocumentSources reports, per resource, whether a read is currently served
// from the store, a default, or a fallback after a failure.
func (s *SiteService) DocumentSources(ctx context.Context) map[string]string {
	out := map[string]string{}
	_, src, _ := store.Load(ctx, s.Store, s.content)
	out[ContentResource] = src.String()
	_, src, _ = store.Load(ctx, s.Store, s.events)
	out[EventsResource] = src.String()
	_, src, _ = store.Load(ctx, s.Store, s.links)
	out[LinksResource] = src.String()
	_, src, _ = store.Load(ctx, s.Store, s.news)
	out[NewsResource] = src.String()
	_, src, _ = store.Load(ctx, s.Store, s.emailConfig)
	out[EmailConfigResource] = src.String()
	_, src, _ = store.Load(ctx, s.Store, store.Resource[[]model.GalleryMeta]{
		Name:    GalleriesResource,
		Default: func() []model.GalleryMeta { return []model.GalleryMeta{} },
	})
	out[GalleriesResource] = src.String()
	return out
}
