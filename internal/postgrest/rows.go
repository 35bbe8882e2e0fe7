package postgrest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ziadkadry99/inkpost/internal/blog"
)

// timestamp accepts both timestamptz output and the zone-less form a
// plain timestamp column produces.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("postgrest: unrecognised timestamp %q", s)
}

type articleRow struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Category     string      `json:"category"`
	Excerpt      string      `json:"excerpt"`
	Content      string      `json:"content"`
	Status       blog.Status `json:"status"`
	Date         timestamp   `json:"date"`
	ImageURL     string      `json:"imageUrl"`
	ReadTime     string      `json:"readTime"`
	ShowTimeline bool        `json:"showTimeline"`
}

func (r articleRow) article() blog.Article {
	return blog.Article{
		ID:           r.ID,
		Title:        r.Title,
		Category:     r.Category,
		Excerpt:      r.Excerpt,
		Content:      r.Content,
		Status:       r.Status,
		Date:         r.Date.Time,
		ImageURL:     r.ImageURL,
		ReadTime:     r.ReadTime,
		ShowTimeline: r.ShowTimeline,
	}
}

func toArticles(rows []articleRow) []blog.Article {
	articles := make([]blog.Article, len(rows))
	for i, r := range rows {
		articles[i] = r.article()
	}
	return articles
}

type commentRow struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Date      timestamp `json:"date"`
}

func (r commentRow) comment() blog.Comment {
	return blog.Comment{
		ID:        r.ID,
		ArticleID: r.ArticleID,
		Author:    r.Author,
		Content:   r.Content,
		Date:      r.Date.Time,
	}
}
