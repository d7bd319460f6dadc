// Package uploadserver is the development stand-in for the platform's
// resumable upload endpoint and attachment services. It speaks the
// protocol internal/transport implements: create a session under an
// upload key, stream offset-addressed chunks, get the stored-file
// token from the terminal response. Finalized uploads are queryable
// through the same attachment CRUD surface the real services expose.
package uploadserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsdesk/attachkit/internal/storage"
	"github.com/opsdesk/attachkit/internal/transport"
)

// DefaultMaxSizeBytes caps uploads at 512MB.
const DefaultMaxSizeBytes = 512 << 20

type Config struct {
	Storage      storage.SessionStorage
	Index        *Index
	Logger       *zap.Logger
	MaxSizeBytes int64
}

type Server struct {
	storage storage.SessionStorage
	index   *Index
	logger  *zap.Logger
	maxSize int64
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxSize := cfg.MaxSizeBytes
	if maxSize == 0 {
		maxSize = DefaultMaxSizeBytes
	}
	return &Server{
		storage: cfg.Storage,
		index:   cfg.Index,
		logger:  logger,
		maxSize: maxSize,
	}
}

// Handler returns the route table. Middleware is applied by the caller.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /uploads/{key}", s.handleCreateSession)
	mux.HandleFunc("PATCH /sessions/{id}", s.handleChunk)
	mux.HandleFunc("HEAD /sessions/{id}", s.handleOffset)
	mux.HandleFunc("GET /attachments", s.handleList)
	mux.HandleFunc("GET /attachments/{token}/metadata", s.handleMetadata)
	mux.HandleFunc("GET /attachments/{token}/url", s.handleSignedURL)
	mux.HandleFunc("DELETE /attachments/{token}", s.handleDelete)
	mux.HandleFunc("GET /files/{token}", s.handleDownload)
	return mux
}

type createSessionRequest struct {
	Filename    string            `json:"filename"`
	ContentType string            `json:"contentType"`
	SizeBytes   int64             `json:"sizeBytes"`
	Metadata    map[string]string `json:"metadata"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	details := make(map[string]string)
	if req.Filename == "" {
		details["filename"] = "filename is required"
	}
	if req.SizeBytes < 0 {
		details["sizeBytes"] = "size must not be negative"
	}
	if len(details) > 0 {
		writeDetails(w, http.StatusUnprocessableEntity, details)
		return
	}
	if req.SizeBytes > s.maxSize {
		writeMessage(w, http.StatusUnprocessableEntity, "file too large")
		return
	}

	sess := Session{
		ID:          uuid.New().String(),
		TargetKey:   r.PathValue("key"),
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Metadata:    req.Metadata,
		CreatedAt:   time.Now(),
	}

	if err := s.storage.Create(sess.ID); err != nil {
		s.logger.Error("failed to create session file", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	s.index.PutSession(sess)

	s.logger.Info("upload session created",
		zap.String("session_id", sess.ID),
		zap.String("target_key", sess.TargetKey),
		zap.String("filename", sess.Filename),
		zap.Int64("size_bytes", sess.SizeBytes),
	)

	if sess.SizeBytes == 0 {
		// Nothing to stream; finalize right away.
		att := s.finalize(sess)
		writeJSON(w, http.StatusCreated, map[string]string{"token": att.Token})
		return
	}

	w.Header().Set("Location", "/sessions/"+sess.ID)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.index.Session(r.PathValue("id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "session not found")
		return
	}
	if sess.Completed {
		writeMessage(w, http.StatusConflict, "session already completed")
		return
	}

	offset, err := strconv.ParseInt(r.Header.Get(transport.HeaderUploadOffset), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "missing or malformed upload offset")
		return
	}

	chunk, err := io.ReadAll(io.LimitReader(r.Body, s.maxSize+1))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "failed to read chunk")
		return
	}
	if offset+int64(len(chunk)) > sess.SizeBytes {
		writeMessage(w, http.StatusConflict, "chunk exceeds declared size")
		return
	}

	received, err := s.storage.Append(sess.ID, offset, chunk)
	if err != nil {
		writeMessage(w, http.StatusConflict, err.Error())
		return
	}
	s.index.SetReceived(sess.ID, received)

	if received < sess.SizeBytes {
		w.Header().Set(transport.HeaderUploadOffset, strconv.FormatInt(received, 10))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// All bytes are in; sniff before accepting.
	if err := s.validateStored(sess); err != nil {
		s.index.DropSession(sess.ID)
		s.storage.Delete(sess.ID)
		s.logger.Warn("upload rejected",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	att := s.finalize(sess)
	writeJSON(w, http.StatusOK, map[string]string{"token": att.Token})
}

func (s *Server) validateStored(sess Session) error {
	rc, err := s.storage.Open(sess.ID)
	if err != nil {
		return fmt.Errorf("open stored content: %w", err)
	}
	defer rc.Close()
	return ValidateContentType(rc, sess.ContentType)
}

func (s *Server) finalize(sess Session) StoredAttachment {
	att := StoredAttachment{
		Token:        sess.ID,
		TargetKey:    sess.TargetKey,
		OriginalName: sess.Filename,
		FileType:     sess.ContentType,
		SizeInBytes:  sess.SizeBytes,
		IsGlobal:     sess.Metadata["isGlobal"] == "1",
		UploadedAt:   time.Now(),
	}
	if raw := sess.Metadata["expirationDate"]; raw != "" {
		if expiry, err := time.Parse(time.RFC3339, raw); err == nil {
			att.ExpiryDate = &expiry
		}
	}
	s.index.Complete(sess.ID, att)

	s.logger.Info("upload finalized",
		zap.String("token", att.Token),
		zap.String("filename", att.OriginalName),
		zap.Int64("size_bytes", att.SizeInBytes),
	)
	return att
}

func (s *Server) handleOffset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.index.Session(r.PathValue("id"))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set(transport.HeaderUploadOffset, strconv.FormatInt(sess.Received, 10))
	w.Header().Set(transport.HeaderUploadLength, strconv.FormatInt(sess.SizeBytes, 10))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeDetails(w, http.StatusUnprocessableEntity, map[string]string{"target": "target is required"})
		return
	}
	atts := s.index.ListAttachments(target)
	if atts == nil {
		atts = []StoredAttachment{}
	}
	writeJSON(w, http.StatusOK, atts)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	att, ok := s.index.Attachment(r.PathValue("token"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "attachment not found")
		return
	}
	writeJSON(w, http.StatusOK, att)
}

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	att, ok := s.index.Attachment(r.PathValue("token"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "attachment not found")
		return
	}
	// Dev server: the signature is decorative, downloads don't verify.
	expires := time.Now().Add(15 * time.Minute).Unix()
	url := fmt.Sprintf("/files/%s?expires=%d&sig=%s", att.Token, expires, uuid.New().String())
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if !s.index.DeleteAttachment(token) {
		writeMessage(w, http.StatusNotFound, "attachment not found")
		return
	}
	if err := s.storage.Delete(token); err != nil {
		// Orphaned storage is better than an orphaned index entry.
		s.logger.Warn("failed to delete stored content", zap.String("token", token), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	att, ok := s.index.Attachment(token)
	if !ok {
		writeMessage(w, http.StatusNotFound, "attachment not found")
		return
	}
	rc, err := s.storage.Open(token)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to open content")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", att.FileType)
	w.Header().Set("Content-Length", strconv.FormatInt(att.SizeInBytes, 10))
	io.Copy(w, rc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeMessage emits the generic error envelope.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeDetails emits the field-level validation envelope.
func writeDetails(w http.ResponseWriter, status int, details map[string]string) {
	writeJSON(w, status, map[string]any{"data": map[string]any{"details": details}})
}
