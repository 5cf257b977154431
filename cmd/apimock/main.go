// apimock serves a small reqres-style API for trying suites locally.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sea-intercept/internal/logger"
)

type user struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

var users = []user{
	{1, "george.bluth@reqres.in", "George", "Bluth", "https://reqres.in/img/faces/1-image.jpg"},
	{2, "janet.weaver@reqres.in", "Janet", "Weaver", "https://reqres.in/img/faces/2-image.jpg"},
	{3, "emma.wong@reqres.in", "Emma", "Wong", "https://reqres.in/img/faces/3-image.jpg"},
	{4, "eve.holt@reqres.in", "Eve", "Holt", "https://reqres.in/img/faces/4-image.jpg"},
	{5, "charles.morris@reqres.in", "Charles", "Morris", "https://reqres.in/img/faces/5-image.jpg"},
	{6, "tracey.ramos@reqres.in", "Tracey", "Ramos", "https://reqres.in/img/faces/6-image.jpg"},
}

const support = "To keep ReqRes free, contributions towards server costs are appreciated!"

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	flag.Parse()
	log := logger.New(logger.Options{Level: "info", Writers: []string{"console"}})

	var nextID atomic.Int64
	nextID.Store(100)
	tok := newTokens()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/users", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		const per = 3
		var data []user
		if lo := (page - 1) * per; lo < len(users) {
			data = users[lo:min(lo+per, len(users))]
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"page": page, "per_page": per, "total": len(users),
			"total_pages": (len(users) + per - 1) / per, "data": data,
			"support": map[string]string{"text": support},
		})
	})

	r.Get("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(chi.URLParam(r, "id"))
		for _, u := range users {
			if u.ID == id {
				writeJSON(w, http.StatusOK, map[string]any{
					"data":    u,
					"support": map[string]string{"text": support},
				})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{})
	})

	r.Post("/api/users", func(w http.ResponseWriter, r *http.Request) {
		in := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&in)
		in["id"] = strconv.FormatInt(nextID.Add(1), 10)
		in["createdAt"] = time.Now().UTC().Format(time.RFC3339Nano)
		writeJSON(w, http.StatusCreated, in)
	})

	r.Post("/api/register", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing password"})
			return
		}
		t, err := tok.issue(in.Email)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 4, "token": t})
	})

	r.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing password"})
			return
		}
		t, err := tok.issue(in.Email)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": t})
	})

	r.Get("/api/me", func(w http.ResponseWriter, r *http.Request) {
		email, err := tok.subject(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"email": email})
	})

	log.Info("apimock listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Error("listen", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
