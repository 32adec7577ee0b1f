package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"monsterlab/dataset"
	"monsterlab/db"
	"monsterlab/ml"
	"monsterlab/monitoring"
	"monsterlab/monster"
	"monsterlab/pipeline"
	"monsterlab/store"
)

type fakeStore struct {
	monsters []monster.Monster
	err      error
}

func (f *fakeStore) Count(context.Context) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.monsters), nil
}

func (f *fakeStore) Table(context.Context) (*dataset.Table, error) {
	if f.err != nil {
		return nil, f.err
	}
	return monster.Table(f.monsters), nil
}

type testEnv struct {
	app     *App
	handler http.Handler
	history *db.History
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	history, err := db.NewHistory(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	src := &fakeStore{monsters: monster.NewGenerator(42).Batch(60)}
	opts := []ml.TrainOption{ml.WithTrees(10), ml.WithSeed(1)}
	metrics := monitoring.NewMetrics()
	provider := ml.NewProvider(ml.ProviderConfig{
		Path:     filepath.Join(dir, "model.gob"),
		Options:  opts,
		Recorder: metrics,
	})
	app := &App{
		Store:    src,
		Provider: provider,
		Trainer: &pipeline.Trainer{
			Fetch:     func(ctx context.Context) (*dataset.Table, error) { return store.Labeled(ctx, src) },
			Provider:  provider,
			History:   history,
			Options:   opts,
			TestRatio: 0.2,
			Seed:      5,
		},
		History:   history,
		Metrics:   metrics,
		Generator: monster.NewGenerator(7),
	}
	return &testEnv{
		app:     app,
		handler: NewHandler(DefaultServerConfig(), app),
		history: history,
		dir:     dir,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) train(t *testing.T) {
	t.Helper()
	if _, err := e.app.Provider.LoadOrTrain(context.Background(), e.app.fetch); err != nil {
		t.Fatalf("train: %v", err)
	}
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if got := gjson.Get(rr.Body.String(), "status").String(); got != "ok" {
		t.Errorf("unexpected status %q", got)
	}
	if got := gjson.Get(rr.Body.String(), "model").String(); got != "untrained" {
		t.Errorf("expected untrained model, got %q", got)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestHomePage(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Monster Lab", "Rarity", "Damage", "Rank "} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %q", want)
		}
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown page, got %d", rr.Code)
	}
}

func TestDataPage(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/data", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "60 monsters") {
		t.Errorf("expected count in data page")
	}
	if strings.Count(body, "<tr>") != 61 {
		t.Errorf("expected header plus 60 rows, got %d", strings.Count(body, "<tr>"))
	}
}

func TestDataPageStoreError(t *testing.T) {
	env := newTestEnv(t)
	env.app.Store = &fakeStore{err: errors.New("connection refused")}

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/data", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "connection refused") {
		t.Error("expected store error on page")
	}
}

func TestViewPage(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/view", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Energy by Health for Rarity") {
		t.Error("expected default chart title")
	}
	if !strings.Contains(body, "vegaEmbed") {
		t.Error("expected embedded chart")
	}

	form := url.Values{"x_axis": {"Level"}, "y_axis": {"Sanity"}, "target": {"Rarity"}}
	req := httptest.NewRequest(http.MethodPost, "/view", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = env.do(t, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Sanity by Level for Rarity") {
		t.Fatalf("expected posted axes to be charted, got %d", rr.Code)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/view?x_axis=Charisma", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown column, got %d", rr.Code)
	}
}

func TestModelPageTrainsThenPredicts(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"level": {"12"}, "health": {"120.5"}, "energy": {"80"}, "sanity": {"95.25"}}
	req := httptest.NewRequest(http.MethodPost, "/model", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := env.do(t, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Best Model: Random Forest Classifier, Initialized at: ") {
		t.Error("expected model description")
	}
	if !strings.Contains(body, "Prediction: Rank ") || !strings.Contains(body, "%") {
		t.Error("expected prediction with percentage confidence")
	}
	if !strings.Contains(body, `value="120.5"`) {
		t.Error("expected submitted health to be echoed")
	}
	if _, err := os.Stat(env.app.Provider.Path()); err != nil {
		t.Fatalf("expected model blob to be saved: %v", err)
	}

	// 第二次请求直接使用已有模型
	first, _ := env.app.Provider.Machine()
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/model", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	second, _ := env.app.Provider.Machine()
	if first != second {
		t.Error("expected the saved machine to be reused")
	}

	records, err := env.history.RecentPredictions(context.Background(), 10)
	if err != nil || len(records) != 2 {
		t.Fatalf("expected two recorded predictions, got %d (%v)", len(records), err)
	}
}

func TestFeaturesFallback(t *testing.T) {
	app := &App{Generator: monster.NewGenerator(3)}

	req := httptest.NewRequest(http.MethodGet, "/model?level=0&health=abc&energy=42", nil)
	row := app.features(req)
	level, ok := row["Level"].(int)
	if !ok || level < monster.MinLevel || level > monster.MaxLevel {
		t.Errorf("expected random level, got %v", row["Level"])
	}
	if row["Energy"] != 42.0 {
		t.Errorf("expected energy from form, got %v", row["Energy"])
	}
	if h, _ := dataset.ToFloat(row["Health"]); h < 1 || h > 250 {
		t.Errorf("expected random health, got %v", row["Health"])
	}
}

func TestPredictAPI(t *testing.T) {
	env := newTestEnv(t)
	body := `{"level":5,"health":30,"energy":20,"sanity":25}`

	rr := env.do(t, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before training, got %d", rr.Code)
	}

	env.train(t)
	rr = env.do(t, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	doc := rr.Body.String()
	if !strings.HasPrefix(gjson.Get(doc, "label").String(), "Rank ") {
		t.Errorf("unexpected label in %s", doc)
	}
	if c := gjson.Get(doc, "confidence").Float(); c < 0 || c > 1 {
		t.Errorf("confidence out of range: %f", c)
	}
	if gjson.Get(doc, "model").String() != ml.ModelName {
		t.Errorf("unexpected model in %s", doc)
	}
	if !strings.HasSuffix(gjson.Get(doc, "display").String(), "%") {
		t.Errorf("expected percentage display in %s", doc)
	}

	for name, bad := range map[string]string{
		"malformed": `{"level":`,
		"range":     `{"level":99,"health":1,"energy":1,"sanity":1}`,
	} {
		rr = env.do(t, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(bad)))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, rr.Code)
		}
		if gjson.Get(rr.Body.String(), "error").String() == "" {
			t.Errorf("%s: expected error body", name)
		}
	}
}

func TestModelInfoAPI(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/model", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before training, got %d", rr.Code)
	}

	env.train(t)
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/model", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	doc := rr.Body.String()
	if got := gjson.Get(doc, "features").String(); got != `["Level","Health","Energy","Sanity"]` {
		t.Errorf("unexpected features %s", got)
	}
	if !strings.HasPrefix(gjson.Get(doc, "description").String(), "Best Model: ") {
		t.Errorf("unexpected description in %s", doc)
	}
}

func TestTrainAPI(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodPost, "/api/model/train", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	doc := rr.Body.String()
	if gjson.Get(doc, "run_id").String() == "" || gjson.Get(doc, "rows").Int() != 60 {
		t.Errorf("unexpected report %s", doc)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/training/log?limit=5", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if n := len(gjson.Parse(rr.Body.String()).Array()); n != 1 {
		t.Errorf("expected one training log entry, got %d", n)
	}

	env.app.Trainer = nil
	rr = env.do(t, httptest.NewRequest(http.MethodPost, "/api/model/train", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without trainer, got %d", rr.Code)
	}
}

func TestChartAPI(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/chart?x=Level&y=Health&target=Rarity", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	doc := rr.Body.String()
	checks := map[string]string{
		"mark.type":           "circle",
		"encoding.x.field":    "Level",
		"encoding.y.field":    "Health",
		"title":               "Health by Level for Rarity",
		"params.0.bind":       "scales",
		"encoding.x.type":     "quantitative",
		"encoding.color.type": "nominal",
	}
	for path, want := range checks {
		if got := gjson.Get(doc, path).String(); got != want {
			t.Errorf("%s: got %q want %q", path, got, want)
		}
	}
	if n := gjson.Get(doc, "data.values.#").Int(); n != 60 {
		t.Errorf("expected 60 chart rows, got %d", n)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/chart?x=Nope", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestMonstersAPI(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/monsters/count", nil))
	if rr.Code != http.StatusOK || gjson.Get(rr.Body.String(), "count").Int() != 60 {
		t.Fatalf("unexpected count response %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/monsters?limit=5", nil))
	doc := rr.Body.String()
	if gjson.Get(doc, "rows.#").Int() != 5 || gjson.Get(doc, "total").Int() != 60 {
		t.Errorf("unexpected monsters response %s", doc)
	}

	env.app.Store = &fakeStore{err: errors.New("boom")}
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/monsters/count", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `monsterlab_http_requests_total{method="GET",route="GET /api/health",status="200"} 1`) {
		t.Error("expected request counter for /api/health")
	}
}

func TestMetricsCollapseUnmatchedRoutes(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/health", "/api/model/train"} {
		if rr := env.do(t, httptest.NewRequest(http.MethodDelete, path, nil)); rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405 for DELETE %s, got %d", path, rr.Code)
		}
	}
	for _, path := range []string{"/nope/1", "/nope/2"} {
		env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
	if !strings.Contains(body, `monsterlab_http_requests_total{method="DELETE",route="unmatched",status="405"} 2`) {
		t.Errorf("expected 405s under one unmatched label:\n%s", body)
	}
	if !strings.Contains(body, `monsterlab_http_requests_total{method="GET",route="unmatched",status="404"} 2`) {
		t.Error("expected 404s under one unmatched label")
	}
	for _, path := range []string{"/api/model/train", "/nope/1"} {
		if strings.Contains(body, `route="`+path+`"`) {
			t.Errorf("raw path %s leaked into route label", path)
		}
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ml.ErrNotTrained, http.StatusServiceUnavailable},
		{ml.ErrNoFeatures, http.StatusServiceUnavailable},
		{dataset.ErrSchemaMismatch, http.StatusBadRequest},
		{errors.New("disk"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestFormatting(t *testing.T) {
	if got := formatCount(1200); got != "1,200" {
		t.Errorf("formatCount: got %q", got)
	}
	if got := formatPercent(0.8765); got != "87.65%" {
		t.Errorf("formatPercent: got %q", got)
	}
}
