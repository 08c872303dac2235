// Package publishtest runs an in-process publish API for tests.
//
// The server speaks the same protocol as the hosting service: it opens and
// updates publish sessions, hands out S3 presigned PUT URLs that point back
// at itself, stores the uploaded objects in memory and commits versions on
// finalize. Options inject the failures the client has to cope with.
package publishtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/instanthost/internal/client/models"
	"github.com/google/uuid"
)

const (
	Bucket = "sites"
	region = "us-east-1"
)

// Object is one uploaded file as received by the storage endpoint.
type Object struct {
	Body        []byte
	ContentType string
}

// Call is a request seen by the API endpoints (not the storage endpoint).
type Call struct {
	Method    string
	Path      string
	Auth      string
	RequestID string
	Body      []byte
}

// Site is the server's view of one slug.
type Site struct {
	Slug           string
	Anonymous      bool
	ClaimToken     string
	CurrentVersion string
	PendingVersion string
	Title          *string
	Description    *string
	TTLSeconds     *int64
	Files          []models.FileSpec
}

type apiError struct {
	status int
	msg    string
}

type Server struct {
	*httptest.Server

	presign *s3.PresignClient

	apiKey      string
	slugs       []string
	publishErr  *apiError
	finalizeErr *apiError
	uploadFail  map[string]int
	flaky       map[string]int
	uploadDelay time.Duration

	mu       sync.Mutex
	sites    map[string]*Site
	objects  map[string]Object
	calls    []Call
	uploads  int
	inFlight int
	peak     int
}

type Option func(*Server)

// WithAPIKey makes key the only accepted bearer token. Requests without an
// Authorization header are anonymous; any other token is rejected with 401.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithSlugs fixes the slugs handed out to new publishes, in order.
func WithSlugs(slugs ...string) Option {
	return func(s *Server) { s.slugs = append(s.slugs, slugs...) }
}

// WithPublishError answers every publish call with {"error": msg}.
func WithPublishError(status int, msg string) Option {
	return func(s *Server) { s.publishErr = &apiError{status: status, msg: msg} }
}

// WithFinalizeError answers every finalize call with {"error": msg}.
func WithFinalizeError(status int, msg string) Option {
	return func(s *Server) { s.finalizeErr = &apiError{status: status, msg: msg} }
}

// WithUploadFailure rejects every upload of the file at path with status.
func WithUploadFailure(path string, status int) Option {
	return func(s *Server) { s.uploadFail[path] = status }
}

// WithFlakyUpload answers the first n uploads of path with 503.
func WithFlakyUpload(path string, n int) Option {
	return func(s *Server) { s.flaky[path] = n }
}

// WithUploadDelay holds every upload for d before answering.
func WithUploadDelay(d time.Duration) Option {
	return func(s *Server) { s.uploadDelay = d }
}

// Seed registers an existing site, as if published in an earlier run.
func (s *Server) Seed(site Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := site
	s.sites[site.Slug] = &cp
}

// NewServer starts the fake API and closes it when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		uploadFail: map[string]int{},
		flaky:      map[string]int{},
		sites:      map[string]*Site{},
		objects:    map[string]Object{},
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/publish", s.handlePublish)
	mux.HandleFunc("PUT /api/v1/publish/{slug}", s.handlePublish)
	mux.HandleFunc("POST /api/v1/publish/{slug}/finalize", s.handleFinalize)
	mux.HandleFunc("PUT /"+Bucket+"/{key...}", s.handleObject)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	pc, err := newPresignClient(s.URL)
	if err != nil {
		t.Fatalf("presign client: %v", err)
	}
	s.presign = pc

	return s
}

func newPresignClient(endpoint string) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return s3.NewPresignClient(client), nil
}

/*************
 * Inspection
 *************/

// Calls returns the API calls received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Object returns the latest upload of path under slug.
func (s *Server) Object(slug, path string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[slug]
	if !ok {
		return Object{}, false
	}
	for _, v := range []string{site.PendingVersion, site.CurrentVersion} {
		if o, ok := s.objects[objectKey(slug, v, path)]; ok && v != "" {
			return o, true
		}
	}
	return Object{}, false
}

// Uploads reports how many storage PUTs were received, failed ones included.
func (s *Server) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

// PeakUploads reports the highest number of simultaneous storage PUTs.
func (s *Server) PeakUploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Site returns a copy of the server state for slug.
func (s *Server) Site(slug string) (Site, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[slug]
	if !ok {
		return Site{}, false
	}
	return *site, true
}

// SiteURL is the public URL the server reports for slug.
func SiteURL(slug string) string {
	return fmt.Sprintf("https://%s.instanthost.site", slug)
}

/*************
 * Handlers
 *************/

func (s *Server) record(r *http.Request) []byte {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method:    r.Method,
		Path:      r.URL.Path,
		Auth:      r.Header.Get("Authorization"),
		RequestID: r.Header.Get("X-Request-Id"),
		Body:      body,
	})
	s.mu.Unlock()
	return body
}

// authenticate returns (authenticated, ok). ok is false when a response has
// already been written.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (bool, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return false, true
	}
	token, found := strings.CutPrefix(h, "Bearer ")
	if !found || s.apiKey == "" || token != s.apiKey {
		writeError(w, http.StatusUnauthorized, "Invalid API key")
		return false, false
	}
	return true, true
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	body := s.record(r)

	if s.publishErr != nil {
		writeError(w, s.publishErr.status, s.publishErr.msg)
		return
	}

	authed, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req models.PublishRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "files array is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slug := r.PathValue("slug")
	created := slug == ""
	var site *Site
	if created {
		slug = s.nextSlug()
		site = &Site{Slug: slug, Anonymous: !authed}
		if site.Anonymous {
			site.ClaimToken = uuid.NewString()
		}
		s.sites[slug] = site
	} else {
		site = s.sites[slug]
		if site == nil {
			writeError(w, http.StatusNotFound, "Publish not found")
			return
		}
		if site.Anonymous && (req.ClaimToken == nil || *req.ClaimToken != site.ClaimToken) {
			writeError(w, http.StatusForbidden, "Invalid claim token for anonymous update")
			return
		}
	}

	site.Title, site.Description = req.Viewer.Title, req.Viewer.Description
	if authed {
		site.TTLSeconds = req.TTLSeconds
	}
	site.Files = req.Files
	site.PendingVersion = uuid.NewString()

	uploads := make([]models.UploadSlot, 0, len(req.Files))
	for _, f := range req.Files {
		slot, err := s.presignSlot(r.Context(), slug, site.PendingVersion, f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Publish failed")
			return
		}
		uploads = append(uploads, slot)
	}

	resp := models.PublishResponse{
		Slug:        slug,
		SiteURL:     SiteURL(slug),
		FinalizeURL: fmt.Sprintf("%s/api/v1/publish/%s/finalize", s.URL, slug),
		VersionID:   site.PendingVersion,
		Uploads:     uploads,
		Anonymous:   site.Anonymous,
	}
	// Claim credentials are only returned when the site is first created.
	if created && site.Anonymous {
		token := site.ClaimToken
		claimURL := fmt.Sprintf("%s/api/v1/publish/%s/claim?token=%s", s.URL, slug, token)
		exp := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Millisecond)
		resp.ClaimToken, resp.ClaimURL, resp.ExpiresAt = &token, &claimURL, &exp
		resp.Warning = "IMPORTANT: Save your claimToken and claimUrl! They are returned ONLY ONCE and cannot be recovered."
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) nextSlug() string {
	if len(s.slugs) > 0 {
		slug := s.slugs[0]
		s.slugs = s.slugs[1:]
		return slug
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func (s *Server) presignSlot(ctx context.Context, slug, version string, f models.FileSpec) (models.UploadSlot, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(Bucket),
		Key:         aws.String(objectKey(slug, version, f.Path)),
		ContentType: aws.String(f.ContentType),
	}, s3.WithPresignExpires(time.Hour))
	if err != nil {
		return models.UploadSlot{}, err
	}

	headers := map[string]string{}
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "Host") || len(values) == 0 {
			continue
		}
		headers[http.CanonicalHeaderKey(name)] = values[0]
	}
	headers["Content-Type"] = f.ContentType

	return models.UploadSlot{Path: f.Path, URL: req.URL, Method: req.Method, Headers: headers}, nil
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	path := pathFromKey(key)

	s.mu.Lock()
	s.uploads++
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.uploadDelay > 0 {
		time.Sleep(s.uploadDelay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.uploadFail[path]; ok {
		http.Error(w, "AccessDenied", status)
		return
	}
	if n := s.flaky[path]; n > 0 {
		s.flaky[path] = n - 1
		http.Error(w, "SlowDown", http.StatusServiceUnavailable)
		return
	}

	s.objects[key] = Object{Body: body, ContentType: r.Header.Get("Content-Type")}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	body := s.record(r)

	if s.finalizeErr != nil {
		writeError(w, s.finalizeErr.status, s.finalizeErr.msg)
		return
	}
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var req models.FinalizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "versionId is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	site := s.sites[r.PathValue("slug")]
	if site == nil {
		writeError(w, http.StatusNotFound, "Publish not found")
		return
	}
	if site.PendingVersion == "" || req.VersionID != site.PendingVersion {
		writeError(w, http.StatusBadRequest, "Invalid version ID")
		return
	}

	var previous *string
	if site.CurrentVersion != "" {
		prev := site.CurrentVersion
		previous = &prev
	}
	site.CurrentVersion, site.PendingVersion = site.PendingVersion, ""

	writeJSON(w, http.StatusOK, models.FinalizeResponse{
		Success:           true,
		Slug:              site.Slug,
		SiteURL:           SiteURL(site.Slug),
		PreviousVersionID: previous,
		CurrentVersionID:  site.CurrentVersion,
	})
}

/*************
 * Helpers
 *************/

func objectKey(slug, version, path string) string {
	return slug + "/" + version + "/" + path
}

// pathFromKey strips the "<slug>/<version>/" prefix.
func pathFromKey(key string) string {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return key
	}
	return parts[2]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
