package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"NewsDesk/internal/archive"
	"NewsDesk/internal/articles"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnalyzer struct {
	list       domain.TopicList
	err        error
	inProgress bool
	lastDate   string
}

func (s *stubAnalyzer) Today() string { return "2025-06-10" }

func (s *stubAnalyzer) Analyze(context.Context) (domain.TopicList, error) { return s.list, s.err }

func (s *stubAnalyzer) Topics(_ context.Context, date string) (domain.TopicList, error) {
	if date != "2025-06-10" {
		return domain.TopicList{}, archive.ErrNotFound
	}
	return domain.TopicList{Topics: s.list.Topics, IsFromArchive: true}, nil
}

func (s *stubAnalyzer) Article(_ context.Context, date string, v domain.Variant, topic domain.Topic, _ []domain.NewsItem) articles.Outcome {
	s.lastDate = date
	if s.inProgress {
		return articles.Outcome{Article: domain.Article{Content: "<p>writing</p>", Variant: v}, InProgress: true, State: domain.StateGenerating}
	}
	return articles.Outcome{Article: domain.Article{Title: topic.Title, Content: "body", Completed: true, Variant: v}, State: domain.StateCompleted}
}

type stubArchive struct{}

func (stubArchive) Article(date string, v domain.Variant, topicID int) (domain.Article, error) {
	if topicID != 1 {
		return domain.Article{}, archive.ErrNotFound
	}
	return domain.Article{Title: "stored", Variant: v, Completed: true}, nil
}

func (stubArchive) Status(string, domain.Variant, int) domain.GenerationStatus {
	return domain.GenerationStatus{Progress: 50, Status: "preparing prompt", State: domain.StateGenerating}
}

func (stubArchive) Day(date string) (archive.DayView, error) {
	if date != "2025-06-10" {
		return archive.DayView{}, archive.ErrNotFound
	}
	return archive.DayView{Date: date, Articles: 2}, nil
}

func (stubArchive) Summaries() []domain.ArchiveSummary {
	return []domain.ArchiveSummary{{Date: "2025-06-10", Topics: 6, Articles: 2}}
}

type stubMaintenance struct {
	got usecase.ClearRequest
}

func (s *stubMaintenance) ClearCaches(_ context.Context, req usecase.ClearRequest) (usecase.ClearReport, error) {
	s.got = req
	return usecase.ClearReport{Backup: "mem://b", Cleared: map[string]int{"search": 3}}, nil
}

func serve(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeNoResultsIsServiceUnavailable(t *testing.T) {
	t.Parallel()

	r := NewRouter(&stubAnalyzer{err: usecase.ErrNoResults}, stubArchive{}, &stubMaintenance{}, Options{}, nil)
	w := serve(t, r, http.MethodPost, "/api/analyze", "")

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "300" {
		t.Fatalf("unexpected Retry-After %q", w.Header().Get("Retry-After"))
	}
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Code != "no_results" {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}
}

func TestAnalyzeReturnsTopics(t *testing.T) {
	t.Parallel()

	an := &stubAnalyzer{list: domain.TopicList{Topics: []domain.Topic{{ID: 1, Title: "a"}}}}
	w := serve(t, NewRouter(an, stubArchive{}, &stubMaintenance{}, Options{}, nil), http.MethodPost, "/api/analyze", "")

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var list domain.TopicList
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list.Topics) != 1 || list.IsFromArchive {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}
}

func TestTopicsByDate(t *testing.T) {
	t.Parallel()

	r := NewRouter(&stubAnalyzer{}, stubArchive{}, &stubMaintenance{}, Options{}, nil)

	if w := serve(t, r, http.MethodGet, "/api/topics?date=2025-06-01", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodGet, "/api/topics?date=june", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodGet, "/api/topics", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for today, got %d", w.Code)
	}
}

func TestGenerateArticleInProgressIsAccepted(t *testing.T) {
	t.Parallel()

	an := &stubAnalyzer{inProgress: true}
	r := NewRouter(an, stubArchive{}, &stubMaintenance{}, Options{}, nil)
	w := serve(t, r, http.MethodPost, "/api/articles/videoScript", `{"topic":{"id":2,"title":"Summit"}}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var body inProgressResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.GeneratingInProgress || body.PlaceholderContent == "" || body.TopicID != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
	if an.lastDate != "2025-06-10" {
		t.Fatalf("date should default to today, got %q", an.lastDate)
	}
}

func TestGenerateArticleCompleted(t *testing.T) {
	t.Parallel()

	r := NewRouter(&stubAnalyzer{}, stubArchive{}, &stubMaintenance{}, Options{}, nil)
	w := serve(t, r, http.MethodPost, "/api/articles/standard", `{"topic":{"id":1,"title":"Summit"},"date":"2025-06-09"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var art domain.Article
	if err := json.Unmarshal(w.Body.Bytes(), &art); err != nil || art.Title != "Summit" || !art.Completed {
		t.Fatalf("unexpected article %s (%v)", w.Body.String(), err)
	}
}

func TestGenerateArticleRejectsBadInput(t *testing.T) {
	t.Parallel()

	r := NewRouter(&stubAnalyzer{}, stubArchive{}, &stubMaintenance{}, Options{}, nil)
	cases := map[string]struct{ path, body string }{
		"unknown variant": {"/api/articles/poem", `{"topic":{"id":1,"title":"x"}}`},
		"missing topic":   {"/api/articles/standard", `{}`},
		"broken json":     {"/api/articles/standard", `{"topic":`},
		"bad date":        {"/api/articles/standard", `{"topic":{"id":1,"title":"x"},"date":"yesterday"}`},
	}
	for name, tc := range cases {
		if w := serve(t, r, http.MethodPost, tc.path, tc.body); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, w.Code)
		}
	}
}

func TestGetArticleAndStatus(t *testing.T) {
	t.Parallel()

	r := NewRouter(&stubAnalyzer{}, stubArchive{}, &stubMaintenance{}, Options{}, nil)

	if w := serve(t, r, http.MethodGet, "/api/articles/informal/1", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodGet, "/api/articles/informal/7", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodGet, "/api/articles/informal/abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w := serve(t, r, http.MethodGet, "/api/articles/videoScript/3/status?date=2025-06-10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status domain.GenerationStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil || status.Progress != 50 || status.Completed {
		t.Fatalf("unexpected status body %s (%v)", w.Body.String(), err)
	}
}

func TestArchives(t *testing.T) {
	t.Parallel()

	r := NewRouter(&stubAnalyzer{}, stubArchive{}, &stubMaintenance{}, Options{}, nil)

	w := serve(t, r, http.MethodGet, "/api/archives", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"date":"2025-06-10"`) {
		t.Fatalf("unexpected listing %d %s", w.Code, w.Body.String())
	}
	if w := serve(t, r, http.MethodGet, "/api/archives/2025-06-10", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := serve(t, r, http.MethodGet, "/api/archives/2025-01-01", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestClearCache(t *testing.T) {
	t.Parallel()

	m := &stubMaintenance{}
	r := NewRouter(&stubAnalyzer{}, stubArchive{}, m, Options{}, nil)

	w := serve(t, r, http.MethodPost, "/api/cache/clear", `{"clearAll":true,"removeArchive":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !m.got.ClearAll || !m.got.RemoveArchive {
		t.Fatalf("request not forwarded: %+v", m.got)
	}
	var report usecase.ClearReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil || report.Cleared["search"] != 3 {
		t.Fatalf("unexpected report %s (%v)", w.Body.String(), err)
	}

	if w := serve(t, r, http.MethodPost, "/api/cache/clear", ""); w.Code != http.StatusOK {
		t.Fatalf("empty body should be accepted, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := NewRouter(&stubAnalyzer{}, stubArchive{}, &stubMaintenance{}, Options{}, nil)
	if w := serve(t, r, http.MethodGet, "/api/health", ""); w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
}
