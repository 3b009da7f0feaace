package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/sitedesk/internal/contentservice"
	"github.com/starford/sitedesk/internal/siteconfig"
	"github.com/starford/sitedesk/internal/taxonomy"
	"github.com/starford/sitedesk/internal/testutil"
)

// testEnv sets up a temp project (content, i18n, data), an index, the
// service and a router that accepts remote test requests.
func testEnv(t *testing.T) (http.Handler, string) {
	t.Helper()
	return testEnvWithOptions(t, Options{AllowRemote: true})
}

func testEnvWithOptions(t *testing.T, opts Options) (http.Handler, string) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFile(t, root, "content/articles/hello.md", "---\ntitle: Hello\ntags:\n  - go\n  - web\n---\nHi\n")
	testutil.WriteFile(t, root, "content/articles/other.md", "---\ntitle: Other\ntags: [go]\n---\n")
	testutil.WriteFile(t, root, "content/articles/broken.md", "---\ntitle: [oops\n---\n")
	testutil.WriteFile(t, root, "i18n/en.json", `{"nav":{"home":"Home"}}`)
	testutil.WriteFile(t, root, "i18n/fa.json", `{"nav":{"home":"خانه","about":"درباره"}}`)
	testutil.WriteFile(t, root, "data/categories.yaml", "- slug: tech\n  names:\n    en: Tech\n")
	testutil.WriteFile(t, root, "data/site.yaml", "# Site settings\ntitle: Site\nauthor: Sara\n")

	scanner := testutil.TestScanner(t, testutil.Provider(t, filepath.Join(root, "content")))
	data := testutil.Provider(t, filepath.Join(root, "data"))
	svc := contentservice.New(scanner,
		taxonomy.NewTranslations(testutil.Provider(t, filepath.Join(root, "i18n")), []string{"en", "fa"}),
		taxonomy.NewCategories(data, "categories.yaml"),
		siteconfig.New(data, "site.yaml"),
		contentservice.WithIndex(testutil.TestDB(t)),
		contentservice.WithLogger(testutil.QuietLogger()),
	)
	return NewRouter(svc, opts), root
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestListContent(t *testing.T) {
	router, _ := testEnv(t)

	w := do(t, router, http.MethodGet, "/content", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Entries []map[string]any `json:"entries"`
		Skipped []map[string]any `json:"skipped"`
		Total   int              `json:"total"`
	}
	decode(t, w, &resp)
	if resp.Total != 2 || len(resp.Entries) != 2 {
		t.Errorf("total = %d, entries = %d, want 2", resp.Total, len(resp.Entries))
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0]["path"] != "articles/broken.md" {
		t.Errorf("skipped = %v", resp.Skipped)
	}
	if resp.Entries[0]["id"] != "articles/hello" || resp.Entries[0]["title"] != "Hello" {
		t.Errorf("first entry = %v", resp.Entries[0])
	}

	w = do(t, router, http.MethodGet, "/content?tag=web", nil)
	decode(t, w, &resp)
	if resp.Total != 1 {
		t.Errorf("tag filter total = %d, want 1", resp.Total)
	}

	w = do(t, router, http.MethodGet, "/content?draft=maybe", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad draft = %d, want 400", w.Code)
	}
}

func TestCreateAndGetContent(t *testing.T) {
	router, root := testEnv(t)

	w := do(t, router, http.MethodPost, "/content/articles", map[string]any{
		"slug":        "en/new-post",
		"frontmatter": json.RawMessage(`{"title":"New & shiny","tags":["a"],"pubDate":"2024-01-15"}`),
		"body":        "Body\n",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	want := "---\ntitle: New & shiny\ntags:\n  - a\npubDate: \"2024-01-15\"\n---\nBody\n"
	if got := testutil.ReadFile(t, root, "content/articles/en/new-post.md"); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}

	for _, target := range []string{"/content/articles/en/new-post", "/content/articles/en/new-post.md", "/content/articles%2Fen%2Fnew-post"} {
		w = do(t, router, http.MethodGet, target, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get %s = %d", target, w.Code)
		}
		var rec struct {
			Entry map[string]any `json:"entry"`
			Body  string         `json:"body"`
		}
		decode(t, w, &rec)
		if rec.Entry["id"] != "articles/en/new-post" || rec.Entry["lang"] != "en" || rec.Body != "Body\n" {
			t.Errorf("get %s = %+v", target, rec)
		}
	}

	w = do(t, router, http.MethodPost, "/content/articles", map[string]any{"slug": "en/new-post"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodPost, "/content/articles", map[string]any{"body": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("create without slug = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/content/articles", `{"slug":"x","frontmatter":[1]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("create with array frontmatter = %d, want 400", w.Code)
	}
}

func TestGetContent_Errors(t *testing.T) {
	router, _ := testEnv(t)

	tests := []struct {
		target string
		want   int
	}{
		{"/content/articles/missing", http.StatusNotFound},
		{"/content/articles/broken", http.StatusUnprocessableEntity},
		{"/content/articles", http.StatusBadRequest},
		{"/content/", http.StatusBadRequest},
	}
	for _, tc := range tests {
		w := do(t, router, http.MethodGet, tc.target, nil)
		if w.Code != tc.want {
			t.Errorf("GET %s = %d, want %d (%s)", tc.target, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestPatchContent(t *testing.T) {
	router, root := testEnv(t)
	original := testutil.ReadFile(t, root, "content/articles/hello.md")

	w := do(t, router, http.MethodPatch, "/content/articles/hello", map[string]any{
		"frontmatter": json.RawMessage(`{"tags":null,"summary":"S"}`),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	if got := testutil.ReadFile(t, root, "content/articles/hello.md"); got != "---\ntitle: Hello\nsummary: S\n---\nHi\n" {
		t.Errorf("file = %q", got)
	}
	if got := testutil.ReadFile(t, root, "content/articles/hello.md.bak"); got != original {
		t.Errorf("backup = %q, want original", got)
	}

	w = do(t, router, http.MethodPatch, "/content/articles/hello", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty patch = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPatch, "/content/articles/missing", map[string]any{"body": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("patch missing = %d, want 404", w.Code)
	}
}

func TestPutContent(t *testing.T) {
	router, root := testEnv(t)

	w := do(t, router, http.MethodPut, "/content/articles/other", map[string]any{
		"frontmatter": json.RawMessage(`{"title":"Replaced"}`),
		"body":        "New body\n",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put = %d, body = %s", w.Code, w.Body.String())
	}
	if got := testutil.ReadFile(t, root, "content/articles/other.md"); got != "---\ntitle: Replaced\n---\nNew body\n" {
		t.Errorf("file = %q", got)
	}

	w = do(t, router, http.MethodPut, "/content/articles/other", map[string]any{"body": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("put without frontmatter = %d, want 400", w.Code)
	}
}

func TestDeleteContent(t *testing.T) {
	router, _ := testEnv(t)

	w := do(t, router, http.MethodDelete, "/content/articles/other", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	var resp DeleteResponse
	decode(t, w, &resp)
	if resp.ID != "articles/other" || !strings.HasPrefix(resp.MovedTo, "articles/other.md.deleted-") {
		t.Errorf("delete response = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/content/articles/other", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/content/articles/other", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestBulkEndpoint(t *testing.T) {
	router, root := testEnv(t)

	w := do(t, router, http.MethodPost, "/bulk", map[string]any{
		"slugs":     []string{"articles/hello", "articles/missing", "articles/other"},
		"fields":    json.RawMessage(`{"tags":["go","new"]}`),
		"arrayMode": "merge",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk = %d, body = %s", w.Code, w.Body.String())
	}
	var rep BulkReport
	decode(t, w, &rep)
	if rep.Succeeded != 2 || rep.Total != 3 {
		t.Errorf("report = %d/%d, want 2/3", rep.Succeeded, rep.Total)
	}
	if rep.Results[1].OK || rep.Results[1].Error != "not found" {
		t.Errorf("missing slug outcome = %+v", rep.Results[1])
	}
	if got := testutil.ReadFile(t, root, "content/articles/hello.md"); got != "---\ntitle: Hello\ntags:\n  - go\n  - web\n  - new\n---\nHi\n" {
		t.Errorf("hello.md = %q", got)
	}

	w = do(t, router, http.MethodPost, "/bulk", map[string]any{"slugs": []string{}, "fields": json.RawMessage(`{"a":1}`)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bulk without slugs = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/bulk", map[string]any{
		"slugs": []string{"articles/hello"}, "fields": json.RawMessage(`{"a":1}`), "arrayMode": "append",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bulk with bad mode = %d, want 400", w.Code)
	}
}

func TestBulkEndpoint_AcceptsFileExtensions(t *testing.T) {
	router, root := testEnv(t)

	w := do(t, router, http.MethodPost, "/bulk", map[string]any{
		"slugs":     []string{"articles/hello.md", "articles/other"},
		"fields":    json.RawMessage(`{"draft":true}`),
		"arrayMode": "replace",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk = %d, body = %s", w.Code, w.Body.String())
	}
	var rep BulkReport
	decode(t, w, &rep)
	if rep.Succeeded != 2 {
		t.Errorf("report = %+v, want both slugs to succeed", rep)
	}
	if rep.Results[0].Slug != "articles/hello" {
		t.Errorf("first slug = %q, want extension dropped", rep.Results[0].Slug)
	}
	if got := testutil.ReadFile(t, root, "content/articles/hello.md"); !strings.Contains(got, "draft: true\n") {
		t.Errorf("hello.md = %q", got)
	}
}

func TestTagsEndpoints(t *testing.T) {
	router, _ := testEnv(t)

	w := do(t, router, http.MethodGet, "/tags", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tags = %d", w.Code)
	}
	var resp TagsResponse
	decode(t, w, &resp)
	if len(resp.Tags) != 2 || resp.Tags[0].Name != "go" || resp.Tags[0].Count != 2 {
		t.Errorf("tags = %+v", resp.Tags)
	}

	for _, c := range []struct{ method, target string }{
		{http.MethodPost, "/tags/rename"},
		{http.MethodPost, "/tags/merge"},
		{http.MethodDelete, "/tags/go"},
	} {
		w := do(t, router, c.method, c.target, map[string]any{})
		if w.Code != http.StatusNotImplemented {
			t.Errorf("%s %s = %d, want 501", c.method, c.target, w.Code)
		}
	}
}

func TestI18nEndpoints(t *testing.T) {
	router, root := testEnv(t)

	w := do(t, router, http.MethodGet, "/i18n/parity", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("parity = %d", w.Code)
	}
	var p ParityResponse
	decode(t, w, &p)
	if len(p.Missing["en"]) != 1 || p.Missing["en"][0] != "nav.about" || len(p.Missing["fa"]) != 0 || p.InSync {
		t.Errorf("parity = %+v", p)
	}

	w = do(t, router, http.MethodPut, "/i18n/keys", SetTranslationRequest{Key: "nav.about", Values: map[string]string{"en": "About"}})
	if w.Code != http.StatusNoContent {
		t.Fatalf("set key = %d, body = %s", w.Code, w.Body.String())
	}
	if got := testutil.ReadFile(t, root, "i18n/en.json"); got != "{\n  \"nav\": {\n    \"home\": \"Home\",\n    \"about\": \"About\"\n  }\n}\n" {
		t.Errorf("en.json = %q", got)
	}

	w = do(t, router, http.MethodGet, "/i18n/en", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"about":"About"`) {
		t.Errorf("get en = %d %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/i18n/de", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get de = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/i18n/keys/nav.about", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete key = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/i18n/keys/nav.about", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete missing key = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodPut, "/i18n/keys", SetTranslationRequest{Key: "nav.x", Values: map[string]string{"de": "X"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("set unknown lang = %d, want 400", w.Code)
	}
}

func TestCategoriesEndpoints(t *testing.T) {
	router, _ := testEnv(t)

	w := do(t, router, http.MethodPost, "/categories", map[string]any{"slug": "life", "names": map[string]string{"en": "Life"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("add = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/categories", map[string]any{"slug": "life", "names": map[string]string{"en": "Life"}})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate add = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodPost, "/categories", map[string]any{"slug": "Not A Slug", "names": map[string]string{"en": "X"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid add = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, "/categories", nil)
	var resp CategoriesResponse
	decode(t, w, &resp)
	if len(resp.Categories) != 2 || resp.Categories[1].Slug != "life" {
		t.Errorf("categories = %+v", resp.Categories)
	}

	w = do(t, router, http.MethodPut, "/categories/tech", map[string]any{"slug": "tech"})
	if w.Code != http.StatusNotImplemented {
		t.Errorf("update = %d, want 501", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/categories/tech", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("remove = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/categories/tech", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("remove missing = %d, want 404", w.Code)
	}
}

func TestSiteEndpoints(t *testing.T) {
	router, root := testEnv(t)

	w := do(t, router, http.MethodGet, "/site", nil)
	if w.Code != http.StatusOK || w.Body.String() != "{\"title\":\"Site\",\"author\":\"Sara\"}\n" {
		t.Errorf("get site = %d %q", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPatch, "/site", `{"title":"Renamed","author":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch site = %d, body = %s", w.Code, w.Body.String())
	}
	if got := testutil.ReadFile(t, root, "data/site.yaml"); got != "# Site settings\ntitle: Renamed\n" {
		t.Errorf("site.yaml = %q", got)
	}

	w = do(t, router, http.MethodPatch, "/site", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty patch = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := testEnv(t)

	// Writes through the API keep the index current.
	w := do(t, router, http.MethodPost, "/content/articles", map[string]any{
		"slug":        "quokka",
		"frontmatter": json.RawMessage(`{"title":"Quokka facts"}`),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/search?q=quokka", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	decode(t, w, &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != "articles/quokka" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = do(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func TestLocalOnly(t *testing.T) {
	router, _ := testEnvWithOptions(t, Options{})

	tests := []struct {
		remote string
		want   int
	}{
		{"192.0.2.1:1234", http.StatusForbidden},
		{"10.0.0.5:80", http.StatusForbidden},
		{"127.0.0.1:5555", http.StatusOK},
		{"[::1]:5555", http.StatusOK},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/tags", nil)
		req.RemoteAddr = tc.remote
		req.Header.Set("X-Forwarded-For", "127.0.0.1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("remote %s = %d, want %d", tc.remote, w.Code, tc.want)
		}
	}
}

func TestEventsMounted(t *testing.T) {
	events := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	})
	router, _ := testEnvWithOptions(t, Options{AllowRemote: true, Events: events})

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("events = %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	router, _ = testEnv(t)
	w = do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("events without broker = %d, want 404", w.Code)
	}
}
