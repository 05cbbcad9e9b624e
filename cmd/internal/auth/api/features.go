package authapi

import (
	"net/http"
	"strings"
)

// Features lists the auth capabilities exposed under the API prefix.
var Features = []string{"register", "login", "refresh-token", "logout"}

// RegisterFeatures wires GET prefix/features.
func RegisterFeatures(mux *http.ServeMux, prefix string) {
	prefix = strings.TrimRight(prefix, "/")
	mux.HandleFunc("GET "+prefix+"/features", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, "Features fetched successfully", Features)
	})
}
