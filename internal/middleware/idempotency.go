package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type IdempotencyRecord struct {
	Status      int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
	Processing  bool // in flight; concurrent duplicates get 409
}

type IdempotencyStore interface {
	// GetOrLock returns (record, true) if exists; (nil,false) if newly locked by caller.
	GetOrLock(key string) (*IdempotencyRecord, bool)
	Save(key string, status int, contentType string, body []byte)
	Unlock(key string)
}

// InMemIdempotencyStore keeps completed responses for ttl.
type InMemIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]*IdempotencyRecord // caller + ":" + key
}

func NewInMemIdempotencyStore(ttl time.Duration) *InMemIdempotencyStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &InMemIdempotencyStore{
		ttl:     ttl,
		now:     time.Now,
		records: make(map[string]*IdempotencyRecord),
	}
}

func (s *InMemIdempotencyStore) GetOrLock(key string) (*IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, ok := s.records[key]; ok {
		if rec.Processing || now.Sub(rec.CreatedAt) < s.ttl {
			return rec, true
		}
	}
	s.evictExpired(now)

	s.records[key] = &IdempotencyRecord{
		Processing: true,
		CreatedAt:  now,
	}
	return nil, false
}

func (s *InMemIdempotencyStore) Save(key string, status int, contentType string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &IdempotencyRecord{
		Status:      status,
		ContentType: contentType,
		Body:        body,
		CreatedAt:   s.now(),
	}
}

func (s *InMemIdempotencyStore) Unlock(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

func (s *InMemIdempotencyStore) evictExpired(now time.Time) {
	for k, rec := range s.records {
		if !rec.Processing && now.Sub(rec.CreatedAt) >= s.ttl {
			delete(s.records, k)
		}
	}
}

// IdempotencyMiddleware replays the stored response for a repeated
// X-Idempotency-Key so a retried order is not submitted twice. Responses with
// a status in uncacheable (upstream blocks such as 403 or 429) are never
// stored, so a retry reaches the upstream again.
func IdempotencyMiddleware(store IdempotencyStore, uncacheable ...int) gin.HandlerFunc {
	skip := make(map[int]struct{}, len(uncacheable))
	for _, s := range uncacheable {
		skip[s] = struct{}{}
	}
	return func(c *gin.Context) {
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" {
			c.Next()
			return
		}

		fullKey := Caller(c) + ":" + idemKey

		record, hit := store.GetOrLock(fullKey)
		if hit {
			if record.Processing {
				c.JSON(http.StatusConflict, gin.H{"error": "request in progress"})
				c.Abort()
				return
			}
			contentType := record.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Header("X-Idempotent-Replay", "true")
			c.Data(record.Status, contentType, record.Body)
			c.Abort()
			return
		}

		w := &responseBodyWriter{body: nil, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		// Errors are rendered later by ErrorHandler, so they are never cached.
		// 5xx stays retryable too.
		_, blocked := skip[c.Writer.Status()]
		if len(c.Errors) == 0 && c.Writer.Written() && c.Writer.Status() < 500 && !blocked {
			store.Save(fullKey, c.Writer.Status(), c.Writer.Header().Get("Content-Type"), w.body)
		} else {
			store.Unlock(fullKey)
		}
	}
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}
