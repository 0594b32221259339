package router

import (
	"net/http"

	contactHandler "clubsite/internal/contact"
	siteHandler "clubsite/internal/site"
	uploadHandler "clubsite/internal/upload"
	"clubsite/middleware"
	"clubsite/pkg/respond"
	"clubsite/socket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Site    *siteHandler.SiteHandler
	Contact *contactHandler.ContactHandler
	Upload  *uploadHandler.UploadHandler
	Hub     *socket.Hub

	// JWTSecret guards writes and the admin socket; empty disables auth.
	JWTSecret     string
	AllowedOrigin string
}

// Setup mounts every endpoint at the root and again under /api.
func Setup(d Deps) http.Handler {
	r := mux.NewRouter()

	register(r, d)
	register(r.PathPrefix("/api").Subrouter(), d)

	r.Handle("/metrics", allow(promhttp.Handler(), http.MethodGet, http.MethodHead))

	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			userID = "anonymous"
		}
		socket.ServeWs(d.Hub, w, r, userID)
	})
	if d.JWTSecret != "" {
		r.Handle("/ws", allow(middleware.AuthMiddleware(d.JWTSecret)(wsHandler), http.MethodGet))
	} else {
		r.Handle("/ws", allow(wsHandler, http.MethodGet))
	}

	return middleware.CORSMiddleware(d.AllowedOrigin)(middleware.RequestID(middleware.Logging(r)))
}

func register(r *mux.Router, d Deps) {
	admin := middleware.AdminAuth(d.JWTSecret)

	r.Handle("/content", admin(http.HandlerFunc(d.Site.Content)))
	r.Handle("/events", admin(http.HandlerFunc(d.Site.Events)))
	r.Handle("/galleries", admin(http.HandlerFunc(d.Site.Galleries)))
	r.Handle("/links", admin(http.HandlerFunc(d.Site.Links)))
	r.Handle("/news", admin(http.HandlerFunc(d.Site.News)))
	r.Handle("/email-config", admin(http.HandlerFunc(d.Site.EmailConfig)))
	r.HandleFunc("/test", d.Site.Status)

	r.HandleFunc("/contact", d.Contact.Submit)
	testEmail := http.Handler(http.HandlerFunc(d.Contact.TestEmail))
	if d.JWTSecret != "" {
		testEmail = middleware.AuthMiddleware(d.JWTSecret)(testEmail)
	}
	r.Handle("/test-email", testEmail)

	r.Handle("/upload-image", admin(http.HandlerFunc(d.Upload.Upload)))
	r.Handle("/uploads/{name}", allow(http.HandlerFunc(d.Upload.Serve), http.MethodGet, http.MethodHead))
}

// allow answers 405 with an Allow header for any method not listed.
func allow(h http.Handler, methods ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				h.ServeHTTP(w, r)
				return
			}
		}
		respond.MethodNotAllowed(w, r, methods...)
	})
}
