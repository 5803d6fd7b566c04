package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates
var templatesFS embed.FS

const (
	cookieName  = "duetrack_token"
	defaultPort = "3000"
	defaultAPI  = "http://localhost:8080"
	envWebPort  = "DEADLINE_WEB_PORT"
	envAPIURL   = "DEADLINE_API_URL"
)

// deadlineView mirrors the API response shape including derived fields.
type deadlineView struct {
	ID            int       `json:"id"`
	Course        string    `json:"course"`
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	DueDate       time.Time `json:"due_date"`
	DaysRemaining int       `json:"daysRemaining"`
	Overdue       bool      `json:"overdue"`
}

func (d deadlineView) DueDateISO() string {
	return d.DueDate.Format("2006-01-02")
}

func main() {
	port := getEnv(envWebPort, defaultPort)
	apiBase := getEnv(envAPIURL, defaultAPI)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health (no auth, no templates)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Public
	r.Get("/login", loginForm)
	r.Post("/login", authSubmit(apiBase, "/login"))
	r.Get("/register", registerForm)
	r.Post("/register", authSubmit(apiBase, "/register"))
	r.Get("/logout", logout)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(apiBase))
		r.Get("/", dashboard(apiBase))
		r.Get("/deadlines/new", deadlineCreateForm)
		r.Post("/deadlines", deadlineCreate(apiBase))
		r.Get("/deadlines/{id}/edit", deadlineEditForm(apiBase))
		r.Post("/deadlines/{id}/edit", deadlineUpdate(apiBase))
		r.Post("/deadlines/{id}/delete", deadlineDelete(apiBase))
	})

	log.Printf("Web UI running on http://localhost:%s (API: %s)", port, apiBase)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// requireAuth redirects to /login if the cookie is missing or the API
// rejects the token (expired or tampered).
func requireAuth(apiBase string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := r.Cookie(cookieName)
			if err != nil || token.Value == "" {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(cookieName); err == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	renderTemplate(w, "login.html", nil)
}

func registerForm(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, "register.html", nil)
}

// authSubmit handles both login and register form posts: both API endpoints
// answer with a token on success.
func authSubmit(apiBase, apiPath string) http.HandlerFunc {
	page := strings.TrimPrefix(apiPath, "/") + ".html"
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		if username == "" || password == "" {
			renderTemplate(w, page, map[string]string{"Error": "Username and password are required"})
			return
		}

		body, _ := json.Marshal(map[string]string{"username": username, "password": password})
		data, status, err := apiPost(apiBase, apiPath, "", body)
		if err != nil {
			renderTemplate(w, page, map[string]string{"Error": "Cannot reach API: " + err.Error()})
			return
		}
		if status != http.StatusOK {
			var errResp struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(data, &errResp)
			msg := errResp.Error
			if msg == "" {
				msg = string(data)
			}
			renderTemplate(w, page, map[string]string{"Error": msg})
			return
		}

		var out struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(data, &out); err != nil || out.Token == "" {
			renderTemplate(w, page, map[string]string{"Error": "Invalid login response"})
			return
		}

		next := r.URL.Query().Get("next")
		if next == "" {
			next = "/"
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    out.Token,
			Path:     "/",
			MaxAge:   24 * 3600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, next, http.StatusFound)
	}
}

func logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusFound)
}

// clearAuthAndRedirectToLogin clears the token cookie and sends the user back
// to login. Call when the API answers 401 (expired or invalid token).
func clearAuthAndRedirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
}

func cookieToken(r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

func dashboard(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deadlines, status, err := fetchDeadlines(apiBase, cookieToken(r))
		if err != nil {
			renderTemplate(w, "dashboard.html", map[string]interface{}{"Error": err.Error()})
			return
		}
		if status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}
		if status != http.StatusOK {
			renderTemplate(w, "dashboard.html", map[string]interface{}{"Error": "API error"})
			return
		}

		overdue := 0
		for _, d := range deadlines {
			if d.Overdue {
				overdue++
			}
		}

		renderTemplate(w, "dashboard.html", map[string]interface{}{
			"Deadlines":    deadlines,
			"Total":        len(deadlines),
			"OverdueCount": overdue,
		})
	}
}

func deadlineCreateForm(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, "deadline_form.html", map[string]interface{}{
		"Action": "/deadlines",
		"Title":  "New deadline",
	})
}

func deadlineCreate(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		body, _ := json.Marshal(map[string]string{
			"course":   strings.TrimSpace(r.FormValue("course")),
			"title":    strings.TrimSpace(r.FormValue("title")),
			"type":     r.FormValue("type"),
			"due_date": r.FormValue("due_date"),
		})

		data, status, err := apiPost(apiBase, "/", cookieToken(r), body)
		if err != nil {
			renderTemplate(w, "deadline_form.html", map[string]interface{}{
				"Action": "/deadlines", "Title": "New deadline", "Error": err.Error(),
			})
			return
		}
		if status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}
		if status != http.StatusCreated {
			renderTemplate(w, "deadline_form.html", map[string]interface{}{
				"Action": "/deadlines", "Title": "New deadline", "Error": apiErrorMessage(data),
			})
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func deadlineEditForm(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		deadlines, status, err := fetchDeadlines(apiBase, cookieToken(r))
		if err != nil || status != http.StatusOK {
			if status == http.StatusUnauthorized {
				clearAuthAndRedirectToLogin(w, r)
				return
			}
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		for _, d := range deadlines {
			if fmt.Sprint(d.ID) == id {
				renderTemplate(w, "deadline_form.html", map[string]interface{}{
					"Action":   "/deadlines/" + id + "/edit",
					"Title":    "Edit deadline",
					"Deadline": d,
				})
				return
			}
		}
		http.NotFound(w, r)
	}
}

func deadlineUpdate(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		body, _ := json.Marshal(map[string]string{
			"course":   strings.TrimSpace(r.FormValue("course")),
			"title":    strings.TrimSpace(r.FormValue("title")),
			"type":     r.FormValue("type"),
			"due_date": r.FormValue("due_date"),
		})

		data, status, err := apiPut(apiBase, "/"+id, cookieToken(r), body)
		if err != nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		if status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}
		if status != http.StatusOK {
			renderTemplate(w, "deadline_form.html", map[string]interface{}{
				"Action": "/deadlines/" + id + "/edit", "Title": "Edit deadline", "Error": apiErrorMessage(data),
			})
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func deadlineDelete(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		_, status, err := apiDelete(apiBase, "/"+id, cookieToken(r))
		if err == nil && status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func fetchDeadlines(apiBase, token string) ([]deadlineView, int, error) {
	data, status, err := apiGet(apiBase, "/", token)
	if err != nil || status != http.StatusOK {
		return nil, status, err
	}
	var deadlines []deadlineView
	if err := json.Unmarshal(data, &deadlines); err != nil {
		return nil, status, fmt.Errorf("invalid deadlines response")
	}
	return deadlines, status, nil
}

func apiErrorMessage(data []byte) string {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return string(data)
}

// apiGet performs GET to the API with a bearer token.
func apiGet(apiBase, path, token string) ([]byte, int, error) {
	return apiDo("GET", apiBase+path, token, nil)
}

// apiPost performs POST to the API with token and JSON body.
func apiPost(apiBase, path, token string, body []byte) ([]byte, int, error) {
	return apiDo("POST", apiBase+path, token, body)
}

// apiPut performs PUT to the API with token and JSON body.
func apiPut(apiBase, path, token string, body []byte) ([]byte, int, error) {
	return apiDo("PUT", apiBase+path, token, body)
}

// apiDelete performs DELETE to the API with token.
func apiDelete(apiBase, path, token string) ([]byte, int, error) {
	return apiDo("DELETE", apiBase+path, token, nil)
}

func apiDo(method, fullURL, token string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, _ := http.NewRequest(method, fullURL, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return data, resp.StatusCode, nil
}

func renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	content, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// Login and register render standalone, without the layout chrome.
	if name == "login.html" || name == "register.html" {
		t := template.Must(template.New(name).Parse(string(content)))
		if err := t.Execute(w, data); err != nil {
			log.Printf("template execute: %v", err)
		}
		return
	}

	layout, _ := templatesFS.ReadFile("templates/layout.html")
	t := template.Must(template.New("layout").Parse(string(layout)))
	t = template.Must(t.Parse(string(content)))
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("template execute: %v", err)
	}
}
