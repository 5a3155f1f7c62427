package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tasklist/pkg/httputil"
	"github.com/platinummonkey/tasklist/pkg/middleware"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

// TodoHandlers serves the todo resource
type TodoHandlers struct {
	todos *todo.Service
}

// NewTodoHandlers creates a new todo handlers instance
func NewTodoHandlers(todos *todo.Service) *TodoHandlers {
	return &TodoHandlers{todos: todos}
}

// RegisterRoutes registers todo routes. protect authenticates every route;
// adminOnly additionally gates the list of all todos.
func (h *TodoHandlers) RegisterRoutes(router *mux.Router, protect, adminOnly func(http.Handler) http.Handler) {
	handle := func(path string, fn http.HandlerFunc, method string) {
		router.Handle(path, protect(fn)).Methods(method)
	}

	router.Handle("/todo", protect(adminOnly(http.HandlerFunc(h.listAll)))).Methods("GET")
	handle("/todo", h.create, "POST")
	handle("/todo/my", h.listMine, "GET")
	handle("/todo/{id}", h.get, "GET")
	handle("/todo/{id}", h.update, "PUT")
	handle("/todo/{id}", h.delete, "DELETE")
}

// listAll handles GET /todo
func (h *TodoHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	todos, err := h.todos.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, todo.ToViews(todos))
}

// listMine handles GET /todo/my
func (h *TodoHandlers) listMine(w http.ResponseWriter, r *http.Request) {
	todos, err := h.todos.ListMine(r.Context(), middleware.GetIdentity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, todo.ToViews(todos))
}

// get handles GET /todo/{id}
func (h *TodoHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	t, err := h.todos.Get(r.Context(), middleware.GetIdentity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, todo.ToView(t))
}

// create handles POST /todo
func (h *TodoHandlers) create(w http.ResponseWriter, r *http.Request) {
	var in todo.Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	t, err := h.todos.Create(r.Context(), middleware.GetIdentity(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, todo.ToView(t))
}

// update handles PUT /todo/{id}
func (h *TodoHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var in todo.Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	t, err := h.todos.Update(r.Context(), middleware.GetIdentity(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, todo.ToView(t))
}

// delete handles DELETE /todo/{id}
func (h *TodoHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.todos.Delete(r.Context(), middleware.GetIdentity(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteOK(w)
}
