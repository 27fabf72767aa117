package service

import (
	"encoding/json"
	"io"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
)

// AuditService records relayed requests asynchronously: to a rotated JSONL
// file when configured, and always to an in-memory ring for GET /v1/audit.
type AuditService struct {
	logChan chan *model.AuditLog
	sink    io.WriteCloser
	buffer  *auditBuffer
	done    chan struct{}
}

type AuditOptions struct {
	File       string
	BufferSize int
}

func NewAuditService(opts AuditOptions) *AuditService {
	var sink io.WriteCloser
	if opts.File != "" {
		sink = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
			Compress:   true,
		}
	}
	return newAuditService(sink, opts.BufferSize)
}

func newAuditService(sink io.WriteCloser, bufferSize int) *AuditService {
	svc := &AuditService{
		logChan: make(chan *model.AuditLog, 1000),
		sink:    sink,
		buffer:  newAuditBuffer(bufferSize),
		done:    make(chan struct{}),
	}
	go svc.processLogs()
	return svc
}

func (s *AuditService) Log(entry *model.AuditLog) {
	s.buffer.Add(entry)
	select {
	case s.logChan <- entry:
	default:
		// Full: drop rather than block the request path.
		logger.Warn("audit log buffer full, dropping entry", "id", entry.ID)
	}
}

// List returns the newest entries first, optionally filtered by caller.
func (s *AuditService) List(caller string, limit int) []*model.AuditLog {
	return s.buffer.List(caller, limit)
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	var encoder *json.Encoder
	if s.sink != nil {
		encoder = json.NewEncoder(s.sink)
	}
	for entry := range s.logChan {
		if encoder == nil {
			continue
		}
		if err := encoder.Encode(entry); err != nil {
			logger.Error("failed to write audit log", "error", err)
		}
	}
}

// Close drains pending entries and closes the sink.
func (s *AuditService) Close() {
	close(s.logChan)
	<-s.done
	if s.sink != nil {
		_ = s.sink.Close()
	}
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

func (b *auditBuffer) List(caller string, limit int) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if caller != "" && entry.Caller != caller {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
