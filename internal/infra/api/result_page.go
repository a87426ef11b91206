package api

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	"realestate-payments/internal/infra/i18n"
)

var checkoutResults = []string{"success", "failure", "pending"}

var resultPage = template.Must(template.New("result").Parse(`<!doctype html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2>{{.Title}}</h2>
  <p>{{.Redirecting}}</p>
  <a class="btn" href="{{.Link}}">{{.OpenApp}}</a>
  <p class="small">{{.Hint}}</p>
</div>
<script>window.location.href = {{.Link}};</script>
</body>
</html>`))

// deepLink forwards the provider's query parameters into the app scheme.
func deepLink(scheme, result string, q url.Values) string {
	u := url.URL{Scheme: scheme, Host: "payment", Path: "/" + result, RawQuery: q.Encode()}
	return u.String()
}

func renderResultPage(w http.ResponseWriter, tr *i18n.Translator, scheme, result string, q url.Values) error {
	var buf bytes.Buffer
	err := resultPage.Execute(&buf, struct {
		Lang, Title, Redirecting, OpenApp, Hint string
		Link                                    template.URL
	}{
		Lang:        tr.Lang(),
		Title:       tr.T("result." + result + ".title"),
		Redirecting: tr.T("result.redirecting"),
		OpenApp:     tr.T("result.open_app"),
		Hint:        tr.T("result.hint"),
		Link:        template.URL(deepLink(scheme, result, q)),
	})
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(buf.Bytes())
	return err
}
