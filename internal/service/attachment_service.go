package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"cuentas/internal/model"
	"cuentas/internal/repository"
	ws "cuentas/internal/websocket"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxAttachmentBytes caps supplier-invoice documents at 10 MiB.
const MaxAttachmentBytes = 10 << 20

// allowed attachment MIME types and their canonical extensions
var allowedAttachmentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

var (
	ErrUnsupportedFileType = errors.New("unsupported file type: only PDF, JPEG and PNG are accepted")
	ErrFileTooLarge        = errors.New("file exceeds the 10 MiB limit")
	ErrUploadInFlight      = errors.New("an upload is already in progress for this entry")
	ErrAttachmentNotFound  = errors.New("no attachment stored for this entry")
)

// UploadState enum constants
const (
	UploadStateIdle       = "IDLE"
	UploadStateValidating = "VALIDATING"
	UploadStateUploading  = "UPLOADING"
	UploadStateDone       = "DONE"
	UploadStateFailed     = "FAILED"
)

// UploadSession is the transient progress record of one attachment upload.
// ProgressPercent never decreases while the state is UPLOADING. Sessions are
// broadcast over the websocket hub so the console renders progress without
// polling.
type UploadSession struct {
	EntryID         string `json:"entry_id"`
	State           string `json:"state"`
	ProgressPercent int    `json:"progress_percent"`
	Error           string `json:"error,omitempty"`
}

// AttachmentFile is a stored document handed back for download. The caller
// owns Reader and must close it.
type AttachmentFile struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.ReadCloser
}

// --- Interface ---

type AttachmentService interface {
	// Upload validates and stores a supplier-invoice document for a payable
	// entry, returning the attachment URL recorded on the entry.
	Upload(ctx context.Context, entryID, userID, filename string, size int64, r io.Reader) (string, error)
	// Download fetches the stored document as an opaque byte stream with a
	// file name synthesized from the entry id and the stored extension.
	Download(ctx context.Context, entryID string) (*AttachmentFile, error)
	// Session returns the current upload session for an entry, if any.
	// A failed session is returned once and then forgotten.
	Session(entryID string) (UploadSession, bool)
}

type attachmentService struct {
	entryRepo repository.EntryRepository
	auditRepo repository.AuditRepository
	hub       *ws.Hub
	dir       string

	mu       sync.Mutex
	sessions map[string]*UploadSession
}

func NewAttachmentService(
	entryRepo repository.EntryRepository,
	auditRepo repository.AuditRepository,
	hub *ws.Hub,
	storageDir string,
) AttachmentService {
	return &attachmentService{
		entryRepo: entryRepo,
		auditRepo: auditRepo,
		hub:       hub,
		dir:       storageDir,
		sessions:  make(map[string]*UploadSession),
	}
}

// --- Implementation ---

func (s *attachmentService) Upload(ctx context.Context, entryID, userID, filename string, size int64, r io.Reader) (string, error) {
	id, err := uuid.Parse(entryID)
	if err != nil {
		return "", fmt.Errorf("invalid entry id: %w", err)
	}

	entry, err := s.entryRepo.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("entry not found: %w", err)
	}
	if entry.Direction != model.DirectionPayable {
		return "", fmt.Errorf("only payable entries carry a supplier invoice")
	}

	// One in-flight upload per entry. Documents may arrive at any point of
	// the entry's lifecycle, terminal states included.
	session, err := s.beginSession(entryID)
	if err != nil {
		return "", err
	}

	// Pre-flight validation happens before anything touches disk.
	if size > MaxAttachmentBytes {
		s.failSession(session, ErrFileTooLarge.Error())
		return "", ErrFileTooLarge
	}
	if size <= 0 {
		s.failSession(session, "empty file")
		return "", fmt.Errorf("empty file")
	}

	header := make([]byte, 3072)
	n, readErr := io.ReadFull(r, header)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		s.failSession(session, "could not read file: "+readErr.Error())
		return "", fmt.Errorf("could not read file: %w", readErr)
	}
	header = header[:n]

	mtype := mimetype.Detect(header)
	ext, ok := allowedAttachmentTypes[mtype.String()]
	if !ok {
		s.failSession(session, ErrUnsupportedFileType.Error())
		return "", fmt.Errorf("%w (got %s)", ErrUnsupportedFileType, mtype.String())
	}

	s.updateSession(session, UploadStateUploading, 0, "")

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.failSession(session, "storage unavailable: "+err.Error())
		return "", fmt.Errorf("storage unavailable: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		s.failSession(session, "storage unavailable: "+err.Error())
		return "", fmt.Errorf("storage unavailable: %w", err)
	}
	tmpName := tmp.Name()

	pr := &progressReader{
		ctx:   ctx,
		inner: io.MultiReader(bytes.NewReader(header), r),
		total: size,
		onProgress: func(pct int) {
			s.updateSession(session, UploadStateUploading, pct, "")
		},
	}

	written, copyErr := io.Copy(tmp, pr)
	closeErr := tmp.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && written > MaxAttachmentBytes {
		// declared size lied; keep the limit authoritative
		copyErr = ErrFileTooLarge
	}
	if copyErr != nil {
		_ = os.Remove(tmpName)
		s.failSession(session, copyErr.Error())
		return "", fmt.Errorf("upload failed: %w", copyErr)
	}

	// Replace any previous attachment, extension included.
	for _, oldExt := range allowedAttachmentTypes {
		if oldExt != ext {
			_ = os.Remove(filepath.Join(s.dir, entryID+oldExt))
		}
	}
	finalPath := filepath.Join(s.dir, entryID+ext)
	if err := os.Rename(tmpName, finalPath); err != nil {
		_ = os.Remove(tmpName)
		s.failSession(session, "storage unavailable: "+err.Error())
		return "", fmt.Errorf("storage unavailable: %w", err)
	}

	attachmentURL := fmt.Sprintf("/api/entries/%s/attachment", entryID)
	entry.Invoice.AttachmentURL = attachmentURL
	if err := s.entryRepo.Update(ctx, entry); err != nil {
		s.failSession(session, "failed to record attachment: "+err.Error())
		return "", fmt.Errorf("failed to record attachment: %w", err)
	}

	s.writeUploadAudit(ctx, userID, entry, filename, written)
	s.updateSession(session, UploadStateDone, 100, "")
	s.endSession(entryID)

	return attachmentURL, nil
}

func (s *attachmentService) Download(ctx context.Context, entryID string) (*AttachmentFile, error) {
	id, err := uuid.Parse(entryID)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id: %w", err)
	}
	entry, err := s.entryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("entry not found: %w", err)
	}
	if entry.Invoice.AttachmentURL == "" {
		return nil, ErrAttachmentNotFound
	}

	for mime, ext := range allowedAttachmentTypes {
		path := filepath.Join(s.dir, entryID+ext)
		info, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open attachment: %w", openErr)
		}
		return &AttachmentFile{
			Name:        entryID + ext,
			ContentType: mime,
			Size:        info.Size(),
			Reader:      f,
		}, nil
	}
	return nil, ErrAttachmentNotFound
}

func (s *attachmentService) Session(entryID string) (UploadSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[entryID]
	if !ok {
		return UploadSession{}, false
	}
	snapshot := *session
	// A failure is reported once and then evicted, so the registry holds
	// only live uploads and failures nobody has seen yet.
	if session.State == UploadStateFailed {
		delete(s.sessions, entryID)
	}
	return snapshot, true
}

// --- Session bookkeeping ---

func (s *attachmentService) beginSession(entryID string) (*UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[entryID]; ok {
		if existing.State == UploadStateValidating || existing.State == UploadStateUploading {
			return nil, ErrUploadInFlight
		}
	}
	session := &UploadSession{EntryID: entryID, State: UploadStateValidating}
	s.sessions[entryID] = session
	s.publishLocked(session)
	return session, nil
}

func (s *attachmentService) updateSession(session *UploadSession, state string, pct int, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.State = state
	if pct > session.ProgressPercent {
		session.ProgressPercent = pct
	}
	session.Error = errMsg
	s.publishLocked(session)
}

func (s *attachmentService) failSession(session *UploadSession, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.State = UploadStateFailed
	session.Error = msg
	s.publishLocked(session)
}

func (s *attachmentService) endSession(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, entryID)
}

// publishLocked pushes the session state to websocket subscribers. The send
// never blocks; a congested hub drops the event rather than stalling the
// upload.
func (s *attachmentService) publishLocked(session *UploadSession) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":    "upload_progress",
		"session": session,
	})
	if err != nil {
		return
	}
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

func (s *attachmentService) writeUploadAudit(ctx context.Context, userID string, entry *model.LedgerEntry, filename string, size int64) {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}
	details, _ := json.Marshal(map[string]interface{}{
		"filename":   filename,
		"size_bytes": size,
	})
	_ = s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:   uid,
		Action:   model.ActionUploadAttachment,
		EntityID: entry.ID.String(),
		Details:  string(details),
	})
}

// --- Progress counting ---

// progressReader counts bytes as the transport hands them over and reports
// a rounded percentage on every change. It also honors context cancellation
// so an abandoned upload stops instead of feeding a disposed session.
type progressReader struct {
	ctx        context.Context
	inner      io.Reader
	total      int64
	sent       int64
	lastPct    int
	onProgress func(pct int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.inner.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		pct := int(math.Round(float64(p.sent) / float64(p.total) * 100))
		if pct > 100 {
			pct = 100
		}
		if pct > p.lastPct {
			p.lastPct = pct
			p.onProgress(pct)
		}
	}
	return n, err
}
