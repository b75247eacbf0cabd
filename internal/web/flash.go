package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"file_cleanup/internal/logger"
	"file_cleanup/internal/service"
)

const flashCookie = "file_cleanup_flash"

type flashMessage struct {
	Severity string `json:"s"`
	Title    string `json:"t"`
	Message  string `json:"m"`
}

// setFlash stores notifications for the next page view.
func setFlash(w http.ResponseWriter, notifications []service.Notification) {
	if len(notifications) == 0 {
		return
	}

	messages := make([]flashMessage, 0, len(notifications))
	for _, n := range notifications {
		messages = append(messages, flashMessage{Severity: string(n.Severity), Title: n.Title, Message: n.Message})
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		logger.Warn.Printf("Failed to encode flash messages: %v", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns and clears the stored notifications.
func popFlash(w http.ResponseWriter, r *http.Request) []flashMessage {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var messages []flashMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil
	}
	return messages
}
