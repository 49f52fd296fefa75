package httppresentation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability/logctx"
)

type createNotificationRequest struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Content string   `json:"content" validate:"max=2000"`
	Kind    string   `json:"type" validate:"required,oneof=system order promotion"`
	UserIDs []string `json:"user_ids" validate:"dive,required"`
}

func (h *Handler) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.svc.Notifications.Notify(r.Context(), notification.Request{
		Recipients: notification.Recipients{UserIDs: req.UserIDs},
		Title:      sanitize(req.Title),
		Content:    sanitize(req.Content),
		Kind:       notification.Kind(req.Kind),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Tạo thông báo thành công", toNotificationView(*n))
}

func (h *Handler) handleInbox(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	unreadOnly := false
	if raw := values.Get("unread"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, apperr.Validation("unread must be a boolean"))
			return
		}
		unreadOnly = b
	}
	limit, err := intParam(values, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	userID := caller(r).UserID
	items, err := h.svc.Notifications.Inbox(r.Context(), userID, unreadOnly, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	unread, err := h.svc.Notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]notificationView, len(items))
	for i, it := range items {
		out[i] = toInboxView(it)
	}
	writeOK(w, http.StatusOK, "Danh sách thông báo", map[string]any{
		"notifications": out,
		"unread_count":  unread,
	})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Notifications.MarkAsRead(r.Context(), caller(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Đã đánh dấu đã đọc", nil)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.MarkAllAsRead(r.Context(), caller(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Đã đánh dấu tất cả là đã đọc", map[string]int64{"updated": n})
}

// handleNotificationStream relays the caller's realtime channel as
// server-sent events until the client goes away.
func (h *Handler) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	if h.svc.Stream == nil {
		writeFailure(w, http.StatusServiceUnavailable, "unavailable", "Realtime không khả dụng", nil)
		return
	}
	ctx := r.Context()
	userID := caller(r).UserID
	logger := logctx.FromOr(ctx, h.log)

	msgs, cancel := h.svc.Stream.Subscribe(notification.UserChannel(userID))
	defer cancel()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, data any) error {
		body, err := json.Marshal(data)
		if err != nil {
			logger.Warn("sse_encode_failed", observability.F("event", event), observability.F("error", err.Error()))
			return nil
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body); err != nil {
			return err
		}
		return rc.Flush()
	}

	unread, err := h.svc.Notifications.UnreadCount(ctx, userID)
	if err != nil {
		logger.Warn("sse_unread_count_failed", observability.F("error", err.Error()))
	}
	if err := send("unread", map[string]int64{"count": unread}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if err := send(m.Event, m.Data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
