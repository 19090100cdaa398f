// admin.go - privacy-conscious visitor tracking and the admin dashboard
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// documentKey is the gin context key a handler sets to the id of the
// document it served.
const documentKey = "document"

const adminCookie = "admin_token"

// Privacy-conscious visitor record
type VisitorMetric struct {
	ID         int64     `json:"id"`
	HashedIP   string    `json:"hashed_ip"` // Hashed instead of raw IP for privacy
	UserAgent  string    `json:"user_agent"`
	Path       string    `json:"path"`
	DocumentID string    `json:"document_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type DocumentStat struct {
	DocumentID string    `json:"document_id"`
	Views      int64     `json:"views"`
	LastViewed time.Time `json:"last_viewed"`
}

type AdminStats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	TotalDocuments   int             `json:"total_documents"`
	TopDocuments     []DocumentStat  `json:"top_documents"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Hash IP address for privacy compliance (consistent per IP for the
// lifetime of the process)
func (s *server) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + s.hashingSalt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

func (s *server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func untrackedPath(path string) bool {
	for _, prefix := range []string{"/static/", "/admin/", "/api/", "/favicon", "/privacy", "/metrics", "/healthz"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// visitorTracking records successful page views with a hashed
// client address once the handler has run.
func (s *server) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.Request.URL.Path
		if untrackedPath(path) || c.Request.Method != http.MethodGet {
			return
		}
		// Respect Do Not Track header
		if c.GetHeader("DNT") == "1" {
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		visit := VisitorMetric{
			HashedIP:   s.hashIP(c.ClientIP()),
			UserAgent:  c.GetHeader("User-Agent"),
			Path:       path,
			DocumentID: c.GetString(documentKey),
			Timestamp:  s.now().UTC(),
		}
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.recordVisit(ctx, visit); err != nil {
				s.log.Warn("recording visitor failed", "path", visit.Path, "error", err)
			}
		}()
	}
}

func (s *server) recordVisit(ctx context.Context, v VisitorMetric) error {
	var documentID any
	if v.DocumentID != "" {
		documentID = v.DocumentID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, document_id, viewed_at)
		VALUES (?, ?, ?, ?, ?)
	`, v.HashedIP, v.UserAgent, v.Path, documentID, v.Timestamp.Unix())
	return err
}

// cleanupOldVisitorData deletes visitor records older than the retention
// period and reports how many were removed.
func (s *server) cleanupOldVisitorData(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.Storage.VisitorRetention)
	result, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE viewed_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		s.log.Info("privacy cleanup removed visitor records", "rows", rows, "older_than", cutoff.Format(time.RFC3339))
	}
	return rows, nil
}

// cleanupLoop runs the retention cleanup now and then once a day until ctx
// is cancelled.
func (s *server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if _, err := s.cleanupOldVisitorData(ctx); err != nil {
			s.log.Error("privacy cleanup failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *server) getAdminStats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{
		TotalDocuments: s.docs.Len(),
		TopDocuments:   []DocumentStat{},
		RecentVisitors: []VisitorMetric{},
	}

	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	counts := []struct {
		dest  *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE viewed_at >= ?`, []any{startOfDay.Unix()}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE viewed_at >= ?`, []any{weekAgo.Unix()}},
	}
	for _, q := range counts {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, COUNT(*) AS views, MAX(viewed_at)
		FROM visitors
		WHERE document_id IS NOT NULL
		GROUP BY document_id
		ORDER BY views DESC, document_id ASC
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var stat DocumentStat
		var last int64
		if err := rows.Scan(&stat.DocumentID, &stat.Views, &last); err != nil {
			rows.Close()
			return nil, err
		}
		stat.LastViewed = time.Unix(last, 0).UTC()
		stats.TopDocuments = append(stats.TopDocuments, stat)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recent, err := s.recentVisitors(ctx, 50)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors = recent
	return stats, nil
}

func (s *server) recentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), path, COALESCE(document_id, ''), viewed_at
		FROM visitors
		ORDER BY viewed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visitors := []VisitorMetric{}
	for rows.Next() {
		var v VisitorMetric
		var viewedAt int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.DocumentID, &viewedAt); err != nil {
			return nil, err
		}
		v.Timestamp = time.Unix(viewedAt, 0).UTC()
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", s.page(gin.H{
			"title":     "Privacy Policy",
			"retention": humanDuration(s.cfg.Storage.VisitorRetention),
		}))
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", s.page(gin.H{"title": "Admin Login"}))
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Admin.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Admin.Password)) == 1
		if !userOK || !passOK {
			s.log.Warn("failed admin login attempt", "client", s.hashIP(c.ClientIP()))
			c.HTML(http.StatusUnauthorized, "admin-login.html", s.page(gin.H{
				"title": "Admin Login",
				"error": "Invalid credentials",
			}))
			return
		}

		secure := gin.Mode() == gin.ReleaseMode
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(adminCookie, s.adminToken, 3600*24, "/admin", "", secure, true)
		s.log.Info("admin login successful", "client", s.hashIP(c.ClientIP()))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		s.log.Info("admin logout", "client", s.hashIP(c.ClientIP()))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(s.adminAuthMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.getAdminStats(c.Request.Context())
		if err != nil {
			s.log.Error("loading admin stats", "error", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", s.page(gin.H{
				"error": "Failed to load statistics",
			}))
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", s.page(gin.H{
			"title": "Dashboard",
			"stats": stats,
		}))
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.getAdminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		rows, err := s.cleanupOldVisitorData(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "deleted": rows})
	})

	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.getAdminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		s.log.Info("admin stats exported", "client", s.hashIP(c.ClientIP()))
		c.JSON(http.StatusOK, stats)
	})
}

// humanDuration prints retention periods the way the privacy page talks
// about them.
func humanDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	switch {
	case days >= 365 && days%365 == 0:
		if days == 365 {
			return "12 months"
		}
		return fmt.Sprintf("%d years", days/365)
	case days >= 60 && days%30 == 0:
		return fmt.Sprintf("%d months", days/30)
	case days == 1:
		return "1 day"
	case days > 1:
		return fmt.Sprintf("%d days", days)
	default:
		return d.String()
	}
}
