// Package linkpreview resolves the metadata docbox shows for a stored
// link: the page title, OGP title/description, the OGP image, and the
// site favicon, with the image bodies streamed into memory so the caller
// can store them as link preview artifacts. Resolved sites are cached
// in-process for two days.
package linkpreview

import (
	"container/list"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/docerr"
)

const (
	// userAgent identifies the preview fetcher to remote sites.
	userAgent = "DocboxLinkBot"

	// connectTimeout bounds dialing a remote site; readTimeout bounds the
	// whole fetch.
	connectTimeout = 15 * time.Second
	readTimeout    = 30 * time.Second

	// cacheCapacity and cacheIdleTTL bound the resolved-site cache.
	cacheCapacity = 100
	cacheIdleTTL  = 48 * time.Hour

	// maxBodyBytes caps how much of any remote response is read.
	maxBodyBytes = 10 << 20
)

// ResolvedImage is a downloaded preview image body and its content type.
type ResolvedImage struct {
	ContentType string
	Bytes       []byte
}

// Resolved is the metadata resolved for one URL.
type Resolved struct {
	Title         string
	OGTitle       string
	OGDescription string
	Image         *ResolvedImage
	Favicon       *ResolvedImage
}

// Service fetches and caches website preview metadata.
type Service struct {
	client   *http.Client
	resolver Resolver
	log      *zap.Logger

	mu    sync.Mutex
	cache map[string]*list.Element
	lru   *list.List
}

type cacheEntry struct {
	key      string
	value    *Resolved
	lastUsed time.Time
}

// NewService builds a Service with the production HTTP client: connect
// and read timeouts per the preview-fetch policy and a fixed user agent.
func NewService(log *zap.Logger) *Service {
	transport := &http.Transport{
		DialContext:       (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ForceAttemptHTTP2: true,
	}
	return NewServiceWithClient(log, &http.Client{Transport: transport, Timeout: readTimeout}, net.DefaultResolver)
}

// NewServiceWithClient builds a Service around a caller-supplied client
// and resolver, for tests.
func NewServiceWithClient(log *zap.Logger, client *http.Client, resolver Resolver) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		client:   client,
		resolver: resolver,
		log:      log,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Resolve fetches the preview metadata for rawURL, downloading the OGP
// image and favicon bodies when present. Image download failures degrade
// to a preview without that image rather than failing the resolve.
func (s *Service) Resolve(ctx context.Context, rawURL string) (*Resolved, error) {
	if cached, ok := s.cacheGet(rawURL); ok {
		return cached, nil
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, docerr.InvalidInput("invalid link url")
	}
	if !IsAllowedURL(ctx, s.resolver, target) {
		return nil, docerr.InvalidInput("link url is not allowed")
	}

	meta, err := s.fetchMetadata(ctx, target)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{
		Title:         meta.Title,
		OGTitle:       meta.OGTitle,
		OGDescription: meta.OGDescription,
	}

	if icon := bestFavicon(meta.Favicons); icon != nil {
		img, err := s.DownloadImage(ctx, target, icon.Href)
		if err != nil {
			s.log.Warn("failed to resolve link favicon", zap.String("url", rawURL), zap.Error(err))
		} else {
			resolved.Favicon = img
		}
	}
	if meta.OGImage != "" {
		img, err := s.DownloadImage(ctx, target, meta.OGImage)
		if err != nil {
			s.log.Warn("failed to resolve link ogp image", zap.String("url", rawURL), zap.Error(err))
		} else {
			resolved.Image = img
		}
	}

	s.cacheSet(rawURL, resolved)
	return resolved, nil
}

// fetchMetadata requests the page and parses its head metadata.
func (s *Service) fetchMetadata(ctx context.Context, target *url.URL) (*pageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, docerr.InvalidInput("invalid link url")
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, docerr.Dependency("failed to fetch link", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, docerr.Dependency("link responded with an error", nil)
	}

	meta, err := parseMetadata(limitReader(res))
	if err != nil {
		return nil, docerr.Dependency("failed to parse link response", err)
	}
	return meta, nil
}

// DownloadImage fetches an image referenced from base: a data: URL is
// decoded in place, a relative href is resolved against base, and the
// remote response must carry an image content type. Direct IP hrefs are
// refused.
func (s *Service) DownloadImage(ctx context.Context, base *url.URL, href string) (*ResolvedImage, error) {
	if strings.HasPrefix(href, "data:") {
		return parseDataURL(href)
	}

	// Sites occasionally leave entity-encoded query separators in href
	// attributes.
	href = strings.ReplaceAll(href, "&amp;", "&")

	target, err := base.Parse(href)
	if err != nil {
		return nil, docerr.InvalidInput("invalid image url")
	}
	if !IsAllowedURL(ctx, s.resolver, target) {
		return nil, docerr.InvalidInput("image url is not allowed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, docerr.InvalidInput("invalid image url")
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, docerr.Dependency("failed to fetch image", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, docerr.Dependency("image responded with an error", nil)
	}

	contentType := res.Header.Get("Content-Type")
	if mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0]); !strings.HasPrefix(mediaType, "image/") {
		return nil, docerr.InvalidInput("remote image has a non-image content type")
	}

	body, err := io.ReadAll(limitReader(res))
	if err != nil {
		return nil, docerr.Dependency("failed to read image body", err)
	}
	return &ResolvedImage{ContentType: contentType, Bytes: body}, nil
}

func limitReader(res *http.Response) io.Reader {
	return io.LimitReader(res.Body, maxBodyBytes)
}

func (s *Service) cacheGet(key string) (*Resolved, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if time.Since(entry.lastUsed) > cacheIdleTTL {
		s.lru.Remove(elem)
		delete(s.cache, key)
		return nil, false
	}
	entry.lastUsed = time.Now()
	s.lru.MoveToFront(elem)
	return entry.value, true
}

func (s *Service) cacheSet(key string, value *Resolved) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.cache[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.lastUsed = time.Now()
		s.lru.MoveToFront(elem)
		return
	}

	elem := s.lru.PushFront(&cacheEntry{key: key, value: value, lastUsed: time.Now()})
	s.cache[key] = elem

	if s.lru.Len() > cacheCapacity {
		oldest := s.lru.Back()
		if oldest != nil {
			s.lru.Remove(oldest)
			delete(s.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}
