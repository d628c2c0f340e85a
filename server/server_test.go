package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"mailquill/config"
	"mailquill/llm"
	"mailquill/middleware"
	"mailquill/models"
	"mailquill/storage"
	"mailquill/utils"
	"mailquill/workflow"

	"github.com/gofiber/fiber/v2"
)

func TestMain(m *testing.M) {
	if err := utils.InitI18n(); err != nil {
		panic(err)
	}
	utils.Log.SetLevel(utils.ERROR)
	os.Exit(m.Run())
}

type scriptedCompleter struct {
	mu      sync.Mutex
	prompts []string
	fail    error
}

func (s *scriptedCompleter) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.fail != nil {
		return "", s.fail
	}
	if strings.HasPrefix(prompt, "Generate a clear, compelling email subject line") {
		return `"Q3 budget"`, nil
	}
	return "Draft number " + string(rune('0'+len(s.prompts))), nil
}

type testEnv struct {
	app       *fiber.App
	storage   *storage.ClientStateStorage
	completer *scriptedCompleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.InitDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	st := storage.NewClientStateStorage(db)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Security.RateLimit = 1000
	completer := &scriptedCompleter{}
	registry := workflow.NewRegistry(st, 0, time.Minute)
	t.Cleanup(registry.Close)

	app := New(Deps{
		Config:    cfg,
		Completer: completer,
		Registry:  registry,
		Generator: workflow.NewGenerator(completer),
		Secret:    []byte("test-secret"),
	})
	return &testEnv{app: app, storage: st, completer: completer}
}

// browser carries cookies between requests like a real browser would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, app: e.app, cookies: map[string]string{}}
}

func (b *browser) do(method, path string, body io.Reader, contentType string) *http.Response {
	b.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if token := b.cookies["csrf_token"]; token != "" && method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", token)
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, path, err)
	}
	for _, c := range resp.Cookies() {
		b.cookies[c.Name] = c.Value
	}
	return resp
}

func (b *browser) json(method, path, body string, out interface{}) int {
	b.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	resp := b.do(method, path, r, fiber.MIMEApplicationJSON)
	defer resp.Body.Close()
	if out != nil {
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, out); err != nil {
			b.t.Fatalf("%s %s: decoding %q: %v", method, path, data, err)
		}
	}
	return resp.StatusCode
}

type stateResponse struct {
	Input      string               `json:"input"`
	Thread     string               `json:"thread"`
	TemplateID string               `json:"template_id"`
	Subject    string               `json:"subject"`
	Results    []string             `json:"results"`
	History    []models.HistoryItem `json:"history"`
	DarkMode   bool                 `json:"dark_mode"`
	View       string               `json:"view"`
	Generation struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"generation"`
}

func TestGenerateFlow(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	var st stateResponse
	if code := b.json("GET", "/api/state", "", &st); code != 200 {
		t.Fatalf("GET /api/state = %d", code)
	}
	if b.cookies["mq_client"] == "" || b.cookies["csrf_token"] == "" {
		t.Fatalf("cookies = %v", b.cookies)
	}

	body := `{"input":"ask about the Q3 budget","tone":"concise","length":"brief","variations":2}`
	if code := b.json("POST", "/api/subject", body, &st); code != 200 || st.Subject != "Q3 budget" {
		t.Fatalf("subject: %d %+v", code, st)
	}
	if code := b.json("POST", "/api/generate", "", &st); code != 200 {
		t.Fatalf("generate = %d", code)
	}
	if len(st.Results) != 2 || st.Generation.Status != "idle" {
		t.Fatalf("state = %+v", st)
	}
	if len(st.History) != 1 || st.History[0].SubjectLine != "Q3 budget" || st.History[0].Tone != "concise" {
		t.Fatalf("history = %+v", st.History)
	}
	id := st.History[0].ID

	var copied map[string]string
	if code := b.json("GET", "/api/copy?index=1", "", &copied); code != 200 ||
		!strings.HasPrefix(copied["text"], "Subject: Q3 budget\n\n") {
		t.Errorf("copy: %d %q", code, copied["text"])
	}

	var found []models.HistoryItem
	b.json("GET", "/api/history?q=BUDGET", "", &found)
	if len(found) != 1 {
		t.Errorf("search found %d", len(found))
	}
	b.json("GET", "/api/history?q=budget&tone=warm", "", &found)
	if len(found) != 0 {
		t.Errorf("tone filter found %d", len(found))
	}
	if code := b.json("GET", "/api/history?tone=shouty", "", nil); code != 400 {
		t.Errorf("bad tone = %d", code)
	}

	// Persisted under the client's own key
	clientID := clientIDFromCookie(t, b.cookies["mq_client"])
	persisted, err := env.storage.Load(clientID)
	if err != nil || len(persisted.History) != 1 || persisted.History[0].ID != id {
		t.Fatalf("persisted = %+v, %v", persisted, err)
	}

	// Restore, then delete
	b.json("POST", "/api/actions", `{"type":"set_input","text":"something else"}`, &st)
	if code := b.json("POST", "/api/history/"+id+"/restore", "", &st); code != 200 || st.Input != "ask about the Q3 budget" {
		t.Errorf("restore: %d %+v", code, st)
	}
	if code := b.json("DELETE", "/api/history/"+id, "", &st); code != 200 || len(st.History) != 0 {
		t.Errorf("delete: %d %+v", code, st.History)
	}
	if code := b.json("DELETE", "/api/history/"+id, "", nil); code != 200 {
		t.Errorf("second delete = %d", code)
	}
	if code := b.json("POST", "/api/history/"+id+"/restore", "", nil); code != 404 {
		t.Errorf("restore deleted = %d", code)
	}
}

func TestGenerationFailureShowsApology(t *testing.T) {
	env := newTestEnv(t)
	env.completer.fail = &llm.UpstreamError{StatusCode: 429, Err: errors.New("rate limited")}
	b := env.browser(t)
	b.json("GET", "/api/state", "", nil)

	var st stateResponse
	code := b.json("POST", "/api/generate", `{"input":"hello","variations":3}`, &st)
	if code != 200 {
		t.Fatalf("generate = %d", code)
	}
	if st.Generation.Status != "failed" || len(st.Results) != 1 || !strings.HasPrefix(st.Results[0], "Sorry") {
		t.Errorf("state = %+v", st)
	}
	if len(st.History) != 0 {
		t.Errorf("failed run recorded in history")
	}
	if len(env.completer.prompts) != 1 {
		t.Errorf("completions after failure = %d", len(env.completer.prompts))
	}
}

func TestGenerateRefusals(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.json("GET", "/api/state", "", nil)

	if code := b.json("POST", "/api/generate", `{"input":"   "}`, nil); code != 422 {
		t.Errorf("empty input = %d, want 422", code)
	}
	if code := b.json("POST", "/api/generate", `{"input":"x","variations":7}`, nil); code != 400 {
		t.Errorf("bad variations = %d, want 400", code)
	}
	if code := b.json("POST", "/api/actions", `{"type":"generation_started"}`, nil); code != 400 {
		t.Errorf("internal action = %d, want 400", code)
	}
	if len(env.completer.prompts) != 0 {
		t.Errorf("completions = %d", len(env.completer.prompts))
	}

	// A template alone is enough
	var st stateResponse
	if code := b.json("POST", "/api/generate", `{"input":"","template_id":"thank-you"}`, &st); code != 200 ||
		len(st.History) != 1 || st.History[0].Source != "Template: Thank You" {
		t.Errorf("template generate: %d %+v", code, st.History)
	}
}

func TestCSRFRequired(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.json("GET", "/api/state", "", nil)
	token := b.cookies["csrf_token"]

	delete(b.cookies, "csrf_token")
	if code := b.json("POST", "/api/actions", `{"type":"set_input","text":"x"}`, nil); code != 403 {
		t.Errorf("without token = %d", code)
	}

	b.cookies["csrf_token"] = token
	if code := b.json("POST", "/api/actions", `{"type":"set_input","text":"x"}`, nil); code != 200 {
		t.Errorf("with token = %d", code)
	}

	// The proxy endpoint is exempt
	fresh := env.browser(t)
	var out map[string]string
	if code := fresh.json("POST", "/api/groq", `{"prompt":"hello"}`, &out); code != 200 || out["content"] == "" {
		t.Errorf("proxy: %d %v", code, out)
	}
}

func TestPreferencesPersist(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.json("GET", "/api/state", "", nil)

	var prefs models.Preferences
	if code := b.json("PUT", "/api/preferences", `{"dark_mode":true}`, &prefs); code != 200 || !prefs.DarkMode {
		t.Fatalf("put: %d %+v", code, prefs)
	}
	persisted, _ := env.storage.Load(clientIDFromCookie(t, b.cookies["mq_client"]))
	if !persisted.DarkMode {
		t.Error("dark mode not persisted")
	}

	other := env.browser(t)
	other.json("GET", "/api/preferences", "", &prefs)
	if prefs.DarkMode {
		t.Error("another client sees dark mode")
	}
}

func TestThreadUpload(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.json("GET", "/api/state", "", nil)

	upload := func(filename, contentType, content string) int {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, _ := w.CreatePart(h)
		part.Write([]byte(content))
		w.Close()
		resp := b.do("POST", "/api/thread", &buf, w.FormDataContentType())
		resp.Body.Close()
		return resp.StatusCode
	}

	thread := "From: ana\n\n  Can we move Friday's sync?\n"
	if code := upload("thread.txt", "text/plain", thread); code != 200 {
		t.Fatalf("upload = %d", code)
	}
	var st stateResponse
	b.json("GET", "/api/state", "", &st)
	if st.Thread != thread {
		t.Errorf("thread = %q, want verbatim", st.Thread)
	}

	if code := upload("photo.png", "image/png", "\x89PNG"); code != 400 {
		t.Errorf("png upload = %d", code)
	}
}

func TestPages(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	for _, path := range []string{"/", "/templates", "/history?q=x&tone=warm"} {
		resp := b.do("GET", path, nil, "")
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != 200 {
			t.Fatalf("GET %s = %d: %s", path, resp.StatusCode, data)
		}
		if !strings.Contains(string(data), "Mailquill") || !strings.Contains(string(data), b.cookies["csrf_token"]) {
			t.Errorf("GET %s: page missing title or csrf token", path)
		}
	}

	var st stateResponse
	b.json("GET", "/api/state", "", &st)
	if st.View != "history" {
		t.Errorf("view = %q after visiting history", st.View)
	}

	resp := b.do("GET", "/?lang=ja", nil, "")
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), "lang=\"ja\"") {
		t.Error("japanese page not rendered")
	}
}

func TestFormGenerate(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.do("GET", "/", nil, "").Body.Close()

	form := "_csrf=" + b.cookies["csrf_token"] + "&input=thank+the+team&tone=warm&length=brief&variations=1"
	resp := b.do("POST", "/compose/generate", strings.NewReader(form), fiber.MIMEApplicationForm)
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("post = %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	var st stateResponse
	b.json("GET", "/api/state", "", &st)
	if len(st.History) != 1 || st.History[0].Tone != "warm" || st.Input != "thank the team" {
		t.Errorf("state = %+v", st)
	}

	// An empty form is silently refused
	resp = b.do("POST", "/compose/generate", strings.NewReader("_csrf="+b.cookies["csrf_token"]+"&input="), fiber.MIMEApplicationForm)
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusSeeOther {
		t.Errorf("empty post = %d", resp.StatusCode)
	}
}

func TestComposeButtonsEnabledForNewClient(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp := b.do("GET", "/", nil, "")
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	page := string(data)

	generate := regexp.MustCompile(`<button type="submit"( disabled)?>\s*Generate`).FindStringSubmatch(page)
	if generate == nil {
		t.Fatal("generate button not found")
	}
	if generate[1] != "" {
		t.Error("generate button disabled before anything was typed")
	}

	subject := regexp.MustCompile(`formaction="/compose/subject"( disabled)?>`).FindStringSubmatch(page)
	if subject == nil {
		t.Fatal("subject button not found")
	}
	if subject[1] != "" {
		t.Error("subject button disabled before anything was typed")
	}
}

func TestHistoryPageShowsPlainSource(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.do("GET", "/", nil, "").Body.Close()

	if code := b.json("POST", "/api/generate", `{"input":"<b>Launch</b> & plan"}`, nil); code != 200 {
		t.Fatalf("generate = %d", code)
	}

	resp := b.do("GET", "/history", nil, "")
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	page := string(data)
	if !strings.Contains(page, "Launch &amp; plan") {
		t.Error("history entry source missing")
	}
	if strings.Contains(page, "&lt;b&gt;") || strings.Contains(page, "&amp;amp;") {
		t.Error("history entry source shows markup or double escaping")
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	var out map[string]string
	if code := b.json("GET", "/api/nope", "", &out); code != 404 || out["error"] == "" {
		t.Errorf("api 404: %d %v", code, out)
	}
	resp := b.do("GET", "/nope", nil, "")
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("page 404 = %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	var out map[string]interface{}
	if code := env.browser(t).json("GET", "/health", "", &out); code != 200 || out["status"] != "ok" {
		t.Errorf("health: %d %v", code, out)
	}
}

func clientIDFromCookie(t *testing.T, token string) string {
	t.Helper()
	id, err := middleware.ParseClientToken(middleware.DefaultIdentityConfig([]byte("test-secret")), token)
	if err != nil {
		t.Fatalf("client cookie: %v", err)
	}
	return id
}
