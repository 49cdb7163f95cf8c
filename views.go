package featuredfix

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/featuredfix/migration"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

type dashboardData struct {
	State     migration.State
	Total     int
	PageSize  int
	DelayMS   int64
	CSRFToken string
}

const pageHead = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Featured image migration</title>
<style>body{font-family:sans-serif;max-width:48rem;margin:2rem auto}.notice{border-left:4px solid #d63638;padding:.5rem 1rem;background:#fcf0f1}
.done{border-left-color:#00a32a;background:#edfaef}#log{font-family:monospace;white-space:pre-wrap;max-height:24rem;overflow:auto}</style>
</head><body>`

const pageFoot = `</body></html>`

func loginPage(showError bool, csrfToken string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		msg := ""
		if showError {
			msg = `<p class="notice">Invalid password.</p>`
		}
		_, err := fmt.Fprintf(w, `%s<h1>Admin login</h1>%s
<form method="post" action="/admin/login/">
<input type="hidden" name="_csrf" value="%s">
<label>Password <input type="password" name="password" autofocus></label>
<button type="submit">Log in</button>
</form>%s`, pageHead, msg, html.EscapeString(csrfToken), pageFoot)
		return err
	})
}

func noticeBanner(s migration.State) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var err error
		switch {
		case s.MigrationComplete:
			_, err = io.WriteString(w, `<div class="notice done"><p>The featured image migration has completed.</p></div>`)
		case s.ShowNotice():
			_, err = io.WriteString(w, `<div class="notice" id="notice"><p>Some posts show their featured image twice: once in the content and once as the featured image. Run the migration to remove the duplicate from the content.</p>
<p><button id="run">Run migration</button> <button id="dismiss">Dismiss</button></p></div>`)
		}
		return err
	})
}

func dashboardPage(d dashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead+`<h1>Featured image migration</h1>`); err != nil {
			return err
		}
		if err := noticeBanner(d.State).Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, `<p>Eligible posts: <strong>%d</strong></p>
<p><progress id="progress" max="100" value="0"></progress> <span id="percent">0%%</span></p>
<div id="log"></div>
<form method="post" action="/admin/logout/"><input type="hidden" name="_csrf" value="%s"><button type="submit">Log out</button></form>
<script>
(function () {
  var token = %q, pageSize = %d, delay = %d, total = %d;
  var log = document.getElementById("log");
  function post(path, body) {
    return fetch(path, {method: "POST", headers: {"X-CSRF-Token": token}, body: body, credentials: "same-origin"})
      .then(function (r) { return r.json().then(function (j) { if (!r.ok) throw new Error(j.error); return j; }); });
  }
  function page(offset) {
    var body = new URLSearchParams({offset: offset, limit: pageSize});
    return post("/admin/migration/batch/", body).then(function (res) {
      log.textContent += res.log.join("\n") + (res.log.length ? "\n" : "");
      var pct = total > 0 ? Math.min(100, Math.floor(res.next_offset * 100 / total)) : 100;
      document.getElementById("progress").value = pct;
      document.getElementById("percent").textContent = pct + "%%";
      if (res.complete) { log.textContent += "Migration complete.\n"; return; }
      return new Promise(function (ok) { setTimeout(ok, delay); }).then(function () { return page(res.next_offset); });
    });
  }
  var run = document.getElementById("run");
  if (run) run.addEventListener("click", function () {
    run.disabled = true;
    page(0).catch(function (e) { log.textContent += "Error: " + e.message + "\n"; run.disabled = false; });
  });
  var dismiss = document.getElementById("dismiss");
  if (dismiss) dismiss.addEventListener("click", function () {
    post("/admin/migration/dismiss/").then(function () { document.getElementById("notice").remove(); });
  });
})();
</script>%s`, d.Total, html.EscapeString(d.CSRFToken), d.CSRFToken, d.PageSize, d.DelayMS, d.Total, pageFoot)
		return err
	})
}
