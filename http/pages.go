package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"monsterlab/chart"
	"monsterlab/dataset"
	"monsterlab/monster"
)

//go:embed templates
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"cell": func(row dataset.Row, col string) string {
		return dataset.ToString(row[col])
	},
}

var pages = map[string]*template.Template{
	"home":  parsePage("home.html"),
	"data":  parsePage("data.html"),
	"view":  parsePage("view.html"),
	"model": parsePage("model.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(pageFuncs).
		ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// RegisterPages 注册页面路由
func RegisterPages(mux *http.ServeMux, app *App) {
	mux.HandleFunc("GET /{$}", app.handleHome)
	mux.HandleFunc("GET /data", app.handleData)
	mux.HandleFunc("GET /view", app.handleView)
	mux.HandleFunc("POST /view", app.handleView)
	mux.HandleFunc("GET /model", app.handleModel)
	mux.HandleFunc("POST /model", app.handleModel)
}

// render 先渲染到缓冲区，失败时不会输出半个页面
func (a *App) render(w http.ResponseWriter, status int, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := pages[name].Execute(&buf, data); err != nil {
		a.logger().Error("Render page failed", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (a *App) renderError(w http.ResponseWriter, name string, err error) {
	a.logger().Warn("Page failed", zap.String("page", name), zap.Error(err))
	a.render(w, statusFor(err), name, map[string]any{"Error": err.Error()})
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	a.render(w, http.StatusOK, "home", map[string]any{
		"Monster": a.generator().Next(),
	})
}

func (a *App) handleData(w http.ResponseWriter, r *http.Request) {
	count, err := a.Store.Count(r.Context())
	if err != nil {
		a.renderError(w, "data", err)
		return
	}
	table, err := a.Store.Table(r.Context())
	if err != nil {
		a.renderError(w, "data", err)
		return
	}
	if a.Metrics != nil {
		a.Metrics.SetDatasetRows(count)
	}
	a.render(w, http.StatusOK, "data", map[string]any{
		"Count": formatCount(count),
		"Table": table,
	})
}

// chartAxes 读取x_axis、y_axis、target，缺省为Health、Energy、Rarity
func chartAxes(r *http.Request, xKey, yKey, targetKey string) (x, y, target string) {
	x = r.FormValue(xKey)
	if x == "" {
		x = monster.Options[1]
	}
	y = r.FormValue(yKey)
	if y == "" {
		y = monster.Options[2]
	}
	target = r.FormValue(targetKey)
	if target == "" {
		target = monster.Options[4]
	}
	return x, y, target
}

func (a *App) handleView(w http.ResponseWriter, r *http.Request) {
	x, y, target := chartAxes(r, "x_axis", "y_axis", "target")
	data := map[string]any{
		"Options": monster.Options,
		"XAxis":   x,
		"YAxis":   y,
		"Target":  target,
	}

	count, err := a.Store.Count(r.Context())
	if err != nil {
		a.renderError(w, "view", err)
		return
	}
	table, err := a.Store.Table(r.Context())
	if err != nil {
		a.renderError(w, "view", err)
		return
	}
	spec, err := chart.Build(table, x, y, target)
	if err != nil {
		data["Error"] = err.Error()
		a.render(w, http.StatusBadRequest, "view", data)
		return
	}
	graph, err := spec.JSON()
	if err != nil {
		a.renderError(w, "view", err)
		return
	}

	data["Count"] = formatCount(count)
	data["Graph"] = template.JS(graph)
	a.render(w, http.StatusOK, "view", data)
}

func (a *App) handleModel(w http.ResponseWriter, r *http.Request) {
	machine, err := a.Provider.LoadOrTrain(r.Context(), a.fetch)
	if err != nil {
		a.renderError(w, "model", err)
		return
	}

	row := a.features(r)
	prediction, err := a.Provider.Predict(r.Context(), row)
	if err != nil {
		a.renderError(w, "model", err)
		return
	}
	a.recordPrediction(r, machine.InitializedAt(), row, prediction)

	a.render(w, http.StatusOK, "model", map[string]any{
		"Info":       machine.Describe(),
		"Level":      row["Level"],
		"Health":     row["Health"],
		"Energy":     row["Energy"],
		"Sanity":     row["Sanity"],
		"Prediction": prediction.Label,
		"Confidence": formatPercent(prediction.Confidence),
	})
}

// features 表单里缺失、为零或无法解析的值用随机值代替
func (a *App) features(r *http.Request) dataset.Row {
	row := a.generator().RandomFeatures()
	if level, err := strconv.Atoi(r.FormValue("level")); err == nil && level != 0 {
		row["Level"] = level
	}
	for _, field := range []struct{ form, column string }{
		{"health", "Health"},
		{"energy", "Energy"},
		{"sanity", "Sanity"},
	} {
		if v, err := strconv.ParseFloat(r.FormValue(field.form), 64); err == nil && v != 0 {
			row[field.column] = v
		}
	}
	return row
}
