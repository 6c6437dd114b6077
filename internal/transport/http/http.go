// Package http implements the HTTP transport for copilot.
//
// It replays the Telegram pipeline over REST: a posted message is run
// through the same handler with a recording gateway, and every message the
// bot would have sent is returned in the response. It is meant for local
// testing and integration checks, not for end users.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/copilot/docs" // swagger spec
	"github.com/nadzzz/copilot/internal/message"
	"github.com/nadzzz/copilot/internal/transport"
)

// maxBody caps a request, including base64-encoded attachments.
const maxBody = 25 << 20

// ReminderLister lists an owner's pending reminders.
type ReminderLister interface {
	List(owner int64) []message.Reminder
}

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port      int
	reminders ReminderLister
	server    *http.Server
}

var _ transport.Transport = (*Transport)(nil)

// New creates a new HTTP transport on the given port.
func New(port int, reminders ReminderLister) *Transport {
	return &Transport{port: port, reminders: reminders}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the HTTP routes bound to handler.
func (t *Transport) Handler(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /messages", func(w http.ResponseWriter, r *http.Request) {
		t.handleMessage(w, r, handler)
	})

	mux.HandleFunc("GET /reminders/{owner}", t.handleReminders)

	// Swagger UI for the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// MessageRequest is the body of POST /messages.
type MessageRequest struct {
	OwnerID  int64            `json:"owner_id" example:"42"`
	ChatID   int64            `json:"chat_id,omitempty" example:"42"` // defaults to OwnerID
	Modality message.Modality `json:"modality" example:"text"`
	Text     string           `json:"text,omitempty" example:"последние новости по экономике"`
	FileName string           `json:"file_name,omitempty" example:"report.pdf"`
	MimeType string           `json:"mime_type,omitempty"`
	Data     []byte           `json:"data,omitempty" swaggertype:"string" format:"base64"`
}

// MessageResponse lists what the bot sent back.
type MessageResponse struct {
	MessageID string             `json:"message_id"`
	Outbound  []message.Outbound `json:"outbound"`
	Error     string             `json:"error,omitempty"`
}

func (req *MessageRequest) inbound() *message.Inbound {
	msg := &message.Inbound{
		ID:         uuid.New().String(),
		OwnerID:    req.OwnerID,
		ChatID:     req.ChatID,
		Modality:   req.Modality,
		Text:       req.Text,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		ReceivedAt: time.Now(),
	}
	if msg.ChatID == 0 {
		msg.ChatID = msg.OwnerID
	}
	if msg.Modality == "" {
		msg.Modality = message.ModalityText
	}
	if len(req.Data) > 0 {
		msg.FileID = inlineFileID
	}
	return msg
}

// handleMessage processes a POST /messages request.
//
// @Summary     Send a message to the bot
// @Description Runs the message through the same pipeline as a Telegram update and returns
// @Description every text or voice message the bot delivered in reply. Attachments (voice,
// @Description document, photo) are passed inline as base64 in "data".
// @Tags        messages
// @Accept      json
// @Produce     json
// @Param       message  body      MessageRequest   true  "Inbound message"
// @Success     200      {object}  MessageResponse  "Delivered replies"
// @Failure     400      {string}  string           "Invalid request body"
// @Failure     500      {object}  MessageResponse  "Handler error; replies sent before the failure are included"
// @Router      /messages [post]
func (t *Transport) handleMessage(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.OwnerID == 0 {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	msg := req.inbound()
	gw := newRecorder(req.Data)

	resp := MessageResponse{MessageID: msg.ID}
	status := http.StatusOK
	if err := handler(r.Context(), gw, msg); err != nil {
		slog.Error("http message failed", "message_id", msg.ID, "error", err)
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	}
	resp.Outbound = gw.Outbound()

	writeJSON(w, status, resp)
}

// handleReminders processes a GET /reminders/{owner} request.
//
// @Summary     List pending reminders
// @Tags        reminders
// @Produce     json
// @Param       owner  path      int  true  "Owner ID"
// @Success     200    {array}   message.Reminder
// @Failure     400    {string}  string  "Invalid owner id"
// @Router      /reminders/{owner} [get]
func (t *Transport) handleReminders(w http.ResponseWriter, r *http.Request) {
	owner, err := strconv.ParseInt(r.PathValue("owner"), 10, 64)
	if err != nil {
		http.Error(w, "invalid owner id", http.StatusBadRequest)
		return
	}

	list := t.reminders.List(owner)
	if list == nil {
		list = []message.Reminder{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
