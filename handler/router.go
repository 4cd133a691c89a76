package handler

import "github.com/gorilla/mux"

// Register mounts every route on the router. main applies middleware around
// the router as a whole.
func (h *ContactHandler) Register(r *mux.Router) {
	r.HandleFunc("/contact", h.Submit).Methods("POST")
	r.HandleFunc("/contact/verify/begin", h.BeginVerification).Methods("POST")
	r.HandleFunc("/contact/verify", h.Verify).Methods("POST")
	r.HandleFunc("/contact/verify/resend", h.ResendVerification).Methods("POST")
	r.HandleFunc("/contact/verify/{sessionID}", h.CancelVerification).Methods("DELETE")
	r.HandleFunc("/notifications/{clientID}", h.Notifications).Methods("GET")
	r.HandleFunc("/notifications/{clientID}/{id}", h.DismissNotification).Methods("DELETE")
	r.HandleFunc("/preferences/{clientID}", h.GetPreferences).Methods("GET")
	r.HandleFunc("/preferences/{clientID}", h.PutPreferences).Methods("PUT")
	r.HandleFunc("/health", h.Health).Methods("GET")
}
