package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// Hello handles GET /hello. Clients use it as a reachability probe and
// expect the literal body "World".
func Hello(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "World")
}
