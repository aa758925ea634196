package admin

import (
	"net/http"
	"time"

	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/session"
)

// BaseTemplateData assembles the fields every admin page expects.
func BaseTemplateData(r *http.Request) map[string]interface{} {
	sess := middleware.GetSession(r.Context())

	data := map[string]interface{}{
		"Year": time.Now().Year(),
	}
	if sess != nil {
		data["User"] = sess.User()
		data["Flashes"] = sess.DrainFlashes()
	}
	return data
}

func currentSession(r *http.Request) *session.Session {
	return middleware.GetSession(r.Context())
}
