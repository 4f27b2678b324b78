// internal/service/content/images.go

package content

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	// Register decoders for dimension sniffing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/PuerkitoBio/goquery"
)

const (
	// minImageArea drops thumbnails and icons.
	minImageArea = 5000

	// maxAspectRatio drops banner-shaped images.
	maxAspectRatio = 1.5

	// spritePenalty divides the area of images whose URL suggests a UI
	// sprite sheet.
	spritePenalty = 10

	// imageReadLimit bounds how much of an image stream is read while
	// sniffing dimensions.
	imageReadLimit = 128 << 10

	imageUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// ErrPageUnavailable reports that the article page itself could not be
// fetched. The caller skips the page; it is not a hard failure.
var ErrPageUnavailable = errors.New("page unavailable")

// ImageSelector finds the best illustrative image for an article page using
// a layered heuristic: explicit author hints first, then the largest
// suitable inline image.
type ImageSelector struct {
	client *http.Client
}

// NewImageSelector creates a selector with the given fetch timeout.
func NewImageSelector(timeout time.Duration) *ImageSelector {
	return &ImageSelector{
		client: &http.Client{Timeout: timeout},
	}
}

// Select returns the URL of the best image for the page, or the empty string
// when no suitable image exists. Non-HTML pages and empty bodies yield the
// empty string without error; a failed page fetch returns
// ErrPageUnavailable.
func (s *ImageSelector) Select(ctx context.Context, pageURL string, useOpenGraph bool) (string, error) {
	resp, err := s.fetch(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageUnavailable, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", nil
	}

	// The author may name the thumbnail outright:
	// <meta property="og:image" content="http://...">
	if useOpenGraph {
		if img := findMeta(doc, "og:image"); img != "" {
			return img, nil
		}
	}

	// <link rel="image_src" href="http://...">
	if href, ok := doc.Find(`link[rel="image_src"]`).Attr("href"); ok && href != "" {
		return href, nil
	}

	return s.largestInlineImage(ctx, pageURL, doc), nil
}

// largestInlineImage scans every inline image and keeps the one with the
// largest post-penalty area that passes the size and shape filters.
func (s *ImageSelector) largestInlineImage(ctx context.Context, pageURL string, doc *goquery.Document) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	maxArea := 0
	maxURL := ""

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if src == "" {
			return
		}

		ref, err := url.Parse(src)
		if err != nil {
			return
		}
		imageURL := base.ResolveReference(ref).String()

		w, h, err := s.imageSize(ctx, imageURL)
		if err != nil {
			// A single broken candidate never fails the page.
			slog.Debug("skipping image candidate", "url", imageURL, "error", err)
			return
		}

		area := w * h
		if area < minImageArea {
			return
		}

		long, short := w, h
		if h > w {
			long, short = h, w
		}
		if float64(long)/float64(short) > maxAspectRatio {
			return
		}

		if strings.Contains(strings.ToLower(imageURL), "sprite") {
			area /= spritePenalty
		}

		if area > maxArea {
			maxArea = area
			maxURL = imageURL
		}
	})

	return maxURL
}

// imageSize reads just enough of the image stream to determine its pixel
// dimensions.
func (s *ImageSelector) imageSize(ctx context.Context, imageURL string) (int, int, error) {
	resp, err := s.fetch(ctx, imageURL)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	cfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, imageReadLimit))
	if err != nil {
		return 0, 0, fmt.Errorf("error decoding image header: %w", err)
	}

	return cfg.Width, cfg.Height, nil
}

func (s *ImageSelector) fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", imageUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return resp, nil
}

// findMeta looks for a meta tag by property, falling back to the name
// attribute form some publishers use.
func findMeta(doc *goquery.Document, property string) string {
	if v, ok := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).Attr("content"); ok && v != "" {
		return v
	}
	if v, ok := doc.Find(fmt.Sprintf(`meta[name="%s"]`, property)).Attr("content"); ok && v != "" {
		return v
	}
	return ""
}
