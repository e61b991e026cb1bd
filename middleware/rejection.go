package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/authguard"
)

// WriteRejection writes rej as a JSON body {"message", "reason"}.
func WriteRejection(w http.ResponseWriter, rej authguard.Rejection) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(rej.Status)
	_ = json.NewEncoder(w).Encode(rej)
}
