package providers

import (
	"net/http"
	"roverchat/internal/structures"

	"github.com/go-chi/chi/v5"
)

type RouterProviderInterface interface {
	Use(middlewares ...func(http.Handler) http.Handler)
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	GetRoutes() []structures.Route
	Handler() http.Handler
}

// RouterProvider records the route table and mounts it on a chi mux.
// Middlewares must be registered before the first route.
type RouterProvider struct {
	mux    *chi.Mux
	routes []structures.Route
}

func (rp *RouterProvider) Use(middlewares ...func(http.Handler) http.Handler) {
	rp.mux.Use(middlewares...)
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.add(http.MethodGet, url, handler)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.add(http.MethodPost, url, handler)
}

func (rp *RouterProvider) add(method, url string, handler http.Handler) {
	rp.routes = append(rp.routes, structures.Route{
		Method:  method,
		Url:     url,
		Handler: handler,
	})
	rp.mux.Method(method, url, handler)
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	return rp.routes
}

func (rp *RouterProvider) Handler() http.Handler {
	return rp.mux
}

func NewRouterProvider() RouterProviderInterface {
	return &RouterProvider{mux: chi.NewRouter()}
}
