package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mybiom/biom/internal/api/recovery"
	"github.com/mybiom/biom/internal/chat"
	"github.com/mybiom/biom/internal/metrics"
	"github.com/mybiom/biom/internal/services"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Users      *services.UserService
	Attributes *services.AttributeService
	Entries    *services.EntryService
	Graphs     *services.GraphService
	Chat       *services.ChatService
	Relay      *chat.Relay
	Health     HealthReporter

	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewRouter wires every route. The returned handler applies CORS ahead of routing
// so preflight requests reach it for any registered path.
func NewRouter(d Deps) http.Handler {
	root := mux.NewRouter()
	root.Use(recovery.Middleware, RequestLogger(d.Log), metrics.Middleware)

	users := NewUserHandler(d.Users)
	root.HandleFunc("/api/users", users.CreateUser).Methods("POST")
	root.HandleFunc("/api/users", users.ListUsers).Methods("GET")
	root.HandleFunc("/api/users/{userId}", users.GetUser).Methods("GET")

	attrs := NewAttributeHandler(d.Attributes)
	root.HandleFunc("/api/users/{userId}/attributes", attrs.SetAttributes).Methods("PUT")
	root.HandleFunc("/api/users/{userId}/attributes", attrs.GetAttributes).Methods("GET")
	root.HandleFunc("/api/users/{userId}/attributes/{name}", attrs.SetAttribute).Methods("PUT")
	root.HandleFunc("/api/users/{userId}/attributes/{name}/history", attrs.History).Methods("GET")

	entries := NewEntryHandler(d.Entries)
	root.HandleFunc("/api/users/{userId}/entries", entries.AppendEntry).Methods("POST")
	root.HandleFunc("/api/users/{userId}/entries", entries.ListEntries).Methods("GET")
	root.HandleFunc("/api/users/{userId}/diary", entries.Diary).Methods("GET")
	root.HandleFunc("/api/users/{userId}/macros", entries.Macros).Methods("GET")

	graphs := NewGraphHandler(d.Graphs)
	root.HandleFunc("/api/users/{userId}/graphs/nutrition", graphs.Nutrition).Methods("GET")
	root.HandleFunc("/api/users/{userId}/graphs/health", graphs.Health).Methods("GET")
	root.HandleFunc("/api/users/{userId}/dashboard", graphs.Dashboard).Methods("GET")

	chatHandler := NewChatHandler(d.Chat, d.Relay)
	root.HandleFunc("/api/users/{userId}/chat/messages", chatHandler.AppendMessage).Methods("POST")
	root.HandleFunc("/api/users/{userId}/chat/messages", chatHandler.ListMessages).Methods("GET")
	if d.Relay != nil {
		root.HandleFunc("/api/chat", chatHandler.Stream).Methods("POST")
	}

	healthHandler := NewHealthHandler(d.Health)
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	root.Handle("/metrics", metrics.Handler()).Methods("GET")

	return CORS(d.AllowedOrigins, root)
}
