package main

import (
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joonaspessi/site/content"
	"github.com/joonaspessi/site/internal/config"
	"github.com/joonaspessi/site/internal/document"
	"github.com/joonaspessi/site/internal/metrics"
	"github.com/joonaspessi/site/internal/render"
	"github.com/joonaspessi/site/internal/store"
	"github.com/joonaspessi/site/web"
)

// server wires the document store, visitor database and mailer into the
// HTTP routes of the site.
type server struct {
	cfg      *config.Config
	log      *slog.Logger
	docs     *store.Store
	pages    map[string]template.HTML
	db       *sql.DB
	mailer   Mailer
	gatherer prometheus.Gatherer

	adminToken  string
	hashingSalt string

	// pending tracks visitor inserts still running in the background.
	pending sync.WaitGroup
	now     func() time.Time
}

func newServer(cfg *config.Config, logger *slog.Logger, docs *store.Store, db *sql.DB, mailer Mailer, gatherer prometheus.Gatherer) (*server, error) {
	renderer := render.New(render.Options{})
	pages := make(map[string]template.HTML, docs.Len())
	for _, doc := range docs.List() {
		html, err := renderer.Document(doc)
		if err != nil {
			return nil, err
		}
		pages[doc.ID] = template.HTML(html)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate admin token: %w", err)
	}
	salt, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate hashing salt: %w", err)
	}

	return &server{
		cfg:         cfg,
		log:         logger,
		docs:        docs,
		pages:       pages,
		db:          db,
		mailer:      mailer,
		gatherer:    gatherer,
		adminToken:  token,
		hashingSalt: salt,
		now:         time.Now,
	}, nil
}

func (s *server) router() (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(s.cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery(), s.requestLogger(), s.visitorTracking())
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	r.GET("/", s.showResume)
	r.GET("/blog", s.listPosts)
	r.GET("/blog/:id", s.showPost)

	api := r.Group("/api")
	api.GET("/documents", s.apiListDocuments)
	api.GET("/documents/:id", s.apiGetDocument)
	api.GET("/documents/:id/source", s.apiDocumentSource)

	r.GET("/contact-form", s.contactForm)
	r.POST("/contact", s.submitContact)

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	r.NoRoute(func(c *gin.Context) {
		s.notFound(c, "There is nothing at this address.")
	})

	s.setupAdminRoutes(r)
	return r, nil
}

// page merges the site-wide template values into data.
func (s *server) page(data gin.H) gin.H {
	out := gin.H{"site": s.cfg.Site}
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (s *server) notFound(c *gin.Context, msg string) {
	c.HTML(http.StatusNotFound, "not-found.html", s.page(gin.H{"title": "Not found", "error": msg}))
}

func (s *server) showResume(c *gin.Context) {
	doc, err := s.docs.Get(content.Resume)
	if err != nil {
		s.log.Error("resume missing from content", "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", s.page(gin.H{"error": "The resume could not be loaded."}))
		return
	}
	s.viewed(c, doc.ID)
	c.HTML(http.StatusOK, "index.html", s.page(gin.H{
		"title":       doc.Title,
		"description": doc.Description,
		"doc":         doc,
		"html":        s.pages[doc.ID],
	}))
}

func (s *server) listPosts(c *gin.Context) {
	c.HTML(http.StatusOK, "blog.html", s.page(gin.H{
		"title": "Blog",
		"posts": s.docs.Posts(),
	}))
}

func (s *server) showPost(c *gin.Context) {
	doc, err := s.docs.Get(c.Param("id"))
	if err != nil || !doc.HasDate() {
		s.notFound(c, "That post does not exist.")
		return
	}
	s.viewed(c, doc.ID)
	c.HTML(http.StatusOK, "post.html", s.page(gin.H{
		"title":       doc.Title,
		"description": doc.Description,
		"doc":         doc,
		"html":        s.pages[doc.ID],
	}))
}

// viewed marks the request as a view of the document for metrics and
// visitor tracking.
func (s *server) viewed(c *gin.Context, id string) {
	c.Set(documentKey, id)
	metrics.DocumentViews.WithLabelValues(id).Inc()
}

type documentSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Date        string   `json:"date,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	URL         string   `json:"url"`
}

type documentDetail struct {
	documentSummary
	Metadata map[string]any      `json:"metadata"`
	Body     string              `json:"body"`
	HTML     string              `json:"html"`
	Outline  []*document.Section `json:"outline"`
}

func documentURL(doc document.Document) string {
	if doc.ID == content.Resume {
		return "/"
	}
	return "/blog/" + doc.ID
}

func summarize(doc document.Document) documentSummary {
	return documentSummary{
		ID:          doc.ID,
		Title:       doc.Title,
		Date:        doc.DateString(),
		Description: doc.Description,
		Author:      doc.Author,
		Tags:        doc.Tags,
		URL:         documentURL(doc),
	}
}

func (s *server) apiListDocuments(c *gin.Context) {
	docs := s.docs.List()
	out := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, summarize(doc))
	}
	c.JSON(http.StatusOK, out)
}

func (s *server) apiGetDocument(c *gin.Context) {
	doc, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, documentDetail{
		documentSummary: summarize(doc),
		Metadata:        doc.Metadata(),
		Body:            doc.Body,
		HTML:            string(s.pages[doc.ID]),
		Outline:         document.Outline(doc),
	})
}

func (s *server) apiDocumentSource(c *gin.Context) {
	doc, ok := s.lookup(c)
	if !ok {
		return
	}
	source, err := document.Marshal(doc)
	if err != nil {
		s.log.Error("serialise document", "document", doc.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serialise document"})
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", source)
}

func (s *server) lookup(c *gin.Context) (document.Document, bool) {
	doc, err := s.docs.Get(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return document.Document{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return document.Document{}, false
	}
	return doc, true
}

func (s *server) healthz(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "documents": s.docs.Len()})
}

const requestIDHeader = "X-Request-ID"

// requestLogger writes one structured record per request. Client addresses
// are left out on purpose; visitor tracking stores only hashes.
func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", requestID,
		)
	}
}
