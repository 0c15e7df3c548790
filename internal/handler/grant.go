package handler

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cliprelay/relay-server-go/internal/middleware"
	"github.com/cliprelay/relay-server-go/internal/model"
)

// callbackPage hands the grant outcome to the window that opened the consent
// popup and closes itself. Without an opener the outcome is shown inline.
var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<p>{{.Title}}{{if .Notification.Error}}: {{.Notification.Error}}{{end}}</p>
<script>
(function () {
  var payload = {{.Notification}};
  if (window.opener) {
    window.opener.postMessage(payload, "*");
    window.close();
  }
})();
</script>
</body>
</html>
`))

type callbackView struct {
	Title        string
	Notification model.Notification
}

// grantCookie carries the flow nonce from Start to Callback. The callback is
// a top-level GET from the provider, so SameSite=Lax still sends it.
const (
	grantCookie     = "cliprelay_grant"
	grantCookiePath = "/oauth/"
)

type GrantHandler struct {
	grants        GrantAPI
	secureCookies bool
}

func NewGrantHandler(grants GrantAPI, secureCookies bool) *GrantHandler {
	return &GrantHandler{grants: grants, secureCookies: secureCookies}
}

// Start returns the provider consent URL for an asset the caller may publish.
func (h *GrantHandler) Start(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	assetID := chi.URLParam(r, "assetId")

	req, err := h.grants.BuildAuthorizationURL(r.Context(), *identity, assetID)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     grantCookie,
		Value:    req.Nonce,
		Path:     grantCookiePath,
		Expires:  req.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"authorizationUrl": req.URL})
}

// Callback is the provider's redirect target. It is unauthenticated; the
// signed state identifies the account and the cookie set by Start
// identifies the browser.
func (h *GrantHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var nonce string
	if c, err := r.Cookie(grantCookie); err == nil {
		nonce = c.Value
	}

	q := r.URL.Query()
	n := h.grants.CompleteGrant(r.Context(), q.Get("code"), q.Get("state"), q.Get("error"), nonce)

	http.SetCookie(w, &http.Cookie{
		Name:   grantCookie,
		Value:  "",
		Path:   grantCookiePath,
		MaxAge: -1,
	})

	view := callbackView{
		Title:        "Authorization complete",
		Notification: n,
	}
	status := http.StatusOK
	if n.Kind == model.NotificationGrantFailed {
		view.Title = "Authorization failed"
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'unsafe-inline'")
	w.WriteHeader(status)
	if err := callbackPage.Execute(w, view); err != nil {
		log.Error().Err(err).Msg("failed to render grant callback page")
	}
}
