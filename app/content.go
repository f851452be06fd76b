// Package app serves blog content queried from the Sanity content store.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"
	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	"github.com/gin-gonic/gin"
)

// Post is the subset of the CMS document the frontend renders in lists and
// detail pages.
type Post struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Excerpt     string `json:"excerpt,omitempty"`
	Body        string `json:"body,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// sanityClient runs GROQ queries against the Sanity HTTP API.
type sanityClient struct {
	baseURL    string
	dataset    string
	apiVersion string
	httpc      *http.Client
}

func newSanityClient(cfg config.SanityConfig) *sanityClient {
	baseURL := ""
	if cfg.ProjectID != "" {
		baseURL = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	return &sanityClient{
		baseURL:    baseURL,
		dataset:    cfg.Dataset,
		apiVersion: cfg.APIVersion,
		httpc:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (sc *sanityClient) query(ctx context.Context, groq string, params map[string]string, out any) error {
	if sc.baseURL == "" {
		return fmt.Errorf("sanity project not configured")
	}

	q := url.Values{}
	q.Set("query", groq)
	for k, v := range params {
		// GROQ params are JSON values; ours are all strings.
		q.Set("$"+k, fmt.Sprintf("%q", v))
	}
	endpoint := fmt.Sprintf(
		"%s/v%s/data/query/%s?%s",
		sc.baseURL, sc.apiVersion, sc.dataset, q.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := sc.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sanity query failed: %s", resp.Status)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

const (
	groqListPosts = `*[_type == "post"] | order(publishedAt desc) {` +
		` title, "slug": slug.current, excerpt, publishedAt }`
	groqPostBySlug = `*[_type == "post" && slug.current == $slug][0] {` +
		` title, "slug": slug.current, excerpt, body, publishedAt }`
)

// ListPosts returns published blog posts, newest first.
func ListPosts(sc *sanityClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		var posts []Post
		if err := sc.query(ctx, groqListPosts, nil, &posts); err != nil {
			log.Printf("post list query failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": models.ErrQueryFailed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
	}
}

// GetPost returns one blog post by slug.
func GetPost(sc *sanityClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := strings.TrimSpace(c.Param("slug"))
		if slug == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": "missing slug"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		var post Post
		if err := sc.query(ctx, groqPostBySlug, map[string]string{"slug": slug}, &post); err != nil {
			log.Printf("post query failed slug=%s err=%v", slug, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": models.ErrQueryFailed})
			return
		}
		if post.Slug == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusOK, post)
	}
}
