// Command sample demonstrates the goshawk framework with a small users API.
//
// Run:
//
//	go run ./cmd/sample
//	go run ./cmd/sample --config server.yaml
//
// Then explore:
//
//	GET    http://localhost:8080/v1/health          — health check
//	GET    http://localhost:8080/v1/users           — list users
//	POST   http://localhost:8080/v1/users           — create user
//	GET    http://localhost:8080/v1/users/{id:int}  — get user
//	PUT    http://localhost:8080/v1/users/{id:int}  — update user
//	DELETE http://localhost:8080/v1/users/{id:int}  — delete user
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"github.com/goshawk-dev/goshawk"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.StringP("config", "c", "", "Path to a YAML configuration file")
	logFormat := flag.String("log", "", "Log format: text or json (default: json unless stdout is a terminal)")
	showVersion := flag.BoolP("version", "v", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("sample", version)
		return 0
	}

	log := newLogger(*logFormat)
	slog.SetDefault(log)

	cfg := goshawk.DefaultConfig()
	if *configPath != "" {
		loaded, err := goshawk.LoadConfig(*configPath)
		if err != nil {
			log.Error("load config", "path", *configPath, "err", err)
			return 1
		}
		cfg = *loaded
	}

	r := newRouter(log)

	srv := goshawk.NewServer(cfg, r, goshawk.WithLogger(log))
	if err := srv.Listen(); err != nil {
		log.Error("listen", "addr", cfg.BindAddress, "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting server", "addr", srv.Addr().String(), "version", version)

	if err := srv.Serve(ctx); err != nil {
		log.Error("server error", "err", err)
		return 1
	}

	log.Info("server stopped")
	return 0
}

func newLogger(format string) *slog.Logger {
	if format == "" {
		format = "json"
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			format = "text"
		}
	}
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newRouter(log *slog.Logger) *goshawk.Router {
	r := goshawk.New()

	must(r.Use(goshawk.Recovery()))
	must(r.Use(goshawk.RequestID()))
	must(r.Use(goshawk.Logger(log)))
	must(r.Use(goshawk.RateLimit(goshawk.RateLimitConfig{Rate: 100, Burst: 200})))

	v1 := r.Group("/v1")

	must(v1.Get("/health", handleHealth, goshawk.ETag()))

	must(v1.Get("/users", handleListUsers))
	must(v1.Post("/users", handleCreateUser, goshawk.BodyLimit(64<<10)))
	must(v1.Get("/users/{id:int}", handleGetUser))
	must(v1.Put("/users/{id:int}", handleUpdateUser, goshawk.BodyLimit(64<<10)))
	must(v1.Delete("/users/{id:int}", handleDeleteUser))

	must(v1.Get("/slow", handleSlow, goshawk.Timeout(2*time.Second)))

	return r
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

var store = &userStore{
	users: map[int]*User{
		1: {ID: 1, Name: "Alice", Email: "alice@example.com", Role: "admin", CreatedAt: time.Now()},
		2: {ID: 2, Name: "Bob", Email: "bob@example.com", Role: "member", CreatedAt: time.Now()},
	},
	nextID: 3,
}

type userStore struct {
	mu     sync.RWMutex
	users  map[int]*User
	nextID int
}

func (s *userStore) list(role string) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	return out
}

func (s *userStore) get(id int) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (s *userStore) create(name, email, role string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:        s.nextID,
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.users[u.ID] = u
	cp := *u
	return &cp
}

func (s *userStore) update(id int, name, email, role string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	if role != "" {
		u.Role = role
	}
	cp := *u
	return &cp, true
}

func (s *userStore) delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// User is the core domain entity.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type userBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type listUsersResp struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

type healthResp struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func handleHealth(_ *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
	return goshawk.JSON(200, healthResp{Status: "ok", Time: time.Now().UTC().Truncate(time.Second)}), nil
}

func handleListUsers(_ *goshawk.Context, req *goshawk.Request) (*goshawk.Response, error) {
	users := store.list(req.QueryValue("role"))
	total := len(users)

	if offset, err := strconv.Atoi(req.QueryValue("offset")); err == nil && offset > 0 {
		if offset > len(users) {
			offset = len(users)
		}
		users = users[offset:]
	}
	if limit, err := strconv.Atoi(req.QueryValue("limit")); err == nil && limit > 0 && limit < len(users) {
		users = users[:limit]
	}

	return goshawk.JSON(200, listUsersResp{Users: users, Total: total}), nil
}

func handleCreateUser(_ *goshawk.Context, req *goshawk.Request) (*goshawk.Response, error) {
	var body userBody
	if err := req.Decode(&body); err != nil {
		return nil, err
	}
	if err := validateUser(&body); err != nil {
		return nil, err
	}
	if body.Role == "" {
		body.Role = "member"
	}
	u := store.create(body.Name, body.Email, body.Role)
	return goshawk.JSON(201, u), nil
}

func handleGetUser(_ *goshawk.Context, req *goshawk.Request) (*goshawk.Response, error) {
	id, _ := strconv.Atoi(req.Param("id"))
	u, ok := store.get(id)
	if !ok {
		return nil, goshawk.Error(404, "user not found")
	}
	return goshawk.JSON(200, u), nil
}

func handleUpdateUser(_ *goshawk.Context, req *goshawk.Request) (*goshawk.Response, error) {
	var body userBody
	if err := req.Decode(&body); err != nil {
		return nil, err
	}
	id, _ := strconv.Atoi(req.Param("id"))
	u, ok := store.update(id, body.Name, body.Email, body.Role)
	if !ok {
		return nil, goshawk.Error(404, "user not found")
	}
	return goshawk.JSON(200, u), nil
}

func handleDeleteUser(_ *goshawk.Context, req *goshawk.Request) (*goshawk.Response, error) {
	id, _ := strconv.Atoi(req.Param("id"))
	if !store.delete(id) {
		return nil, goshawk.Error(404, "user not found")
	}
	return goshawk.NoContent(), nil
}

func handleSlow(c *goshawk.Context, _ *goshawk.Request) (*goshawk.Response, error) {
	select {
	case <-time.After(5 * time.Second):
		return goshawk.Text(200, "done"), nil
	case <-c.Context().Done():
		return nil, c.Context().Err()
	}
}

func validateUser(b *userBody) error {
	if strings.TrimSpace(b.Name) == "" {
		return goshawk.Error(400, "name is required")
	}
	if strings.TrimSpace(b.Email) == "" {
		return goshawk.Error(400, "email is required")
	}
	if !strings.Contains(b.Email, "@") {
		return goshawk.Error(400, "email must contain @")
	}
	return nil
}
