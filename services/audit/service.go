package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/models"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log      *models.AuditLog
	Priority int // Higher priority events are processed first (for future enhancements)
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000, // Buffer up to 10k events
		WorkerCount: 5,     // 5 concurrent workers
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
		started:     false,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	// Start worker goroutines
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service
// Waits for all pending events to be processed
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	// Close the event channel (no more events will be accepted)
	close(s.eventChan)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent logs an event asynchronously (non-blocking)
// Returns immediately, event is processed in background
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	// Try to send event to channel (non-blocking)
	select {
	case s.eventChan <- event:
		return nil
	default:
		// Channel is full, log warning and drop event
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)))
		return fmt.Errorf("audit event buffer full")
	}
}

// Record implements the guard middleware's recorder interface.
// Recording failures never block or fail the request being audited.
func (s *AuditService) Record(_ context.Context, log *models.AuditLog) {
	if err := s.LogEvent(&AuditEvent{Log: log, Priority: 1}); err != nil {
		s.logger.Warn("dropped audit record",
			zap.Error(err),
			zap.String("action", string(log.Action)))
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent processes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Convenience methods for logging common events

// LogSignIn logs a successful sign-in
func (s *AuditService) LogSignIn(userID, orgID uuid.UUID, requestID, ipAddress, userAgent string) error {
	log := models.NewAuditLog(models.AuditActionSignIn, "session").
		WithOrg(orgID).
		WithUser(userID).
		WithRequest(requestID, ipAddress, userAgent)

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogSignOut logs a sign-out
func (s *AuditService) LogSignOut(userID, orgID uuid.UUID, requestID string) error {
	log := models.NewAuditLog(models.AuditActionSignOut, "session").
		WithOrg(orgID).
		WithUser(userID).
		WithRequest(requestID, "", "")

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogSessionError logs a failed session resolution
func (s *AuditService) LogSessionError(requestID, reason string) error {
	log := models.NewAuditLog(models.AuditActionSessionError, "session").
		WithRequest(requestID, "", "").
		WithDetails(map[string]interface{}{
			"reason": reason,
		})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 2})
}

// LogOrgCreated logs an organization provisioning event
func (s *AuditService) LogOrgCreated(org *models.Organization, creatorID uuid.UUID) error {
	log := models.NewAuditLog(models.AuditActionOrgCreated, "organization").
		WithOrg(org.ID).
		WithUser(creatorID).
		WithResource(org.ID).
		WithDetails(map[string]interface{}{
			"name": org.Name,
			"slug": org.Slug,
		})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogMembershipChange logs a membership create/update/delete
func (s *AuditService) LogMembershipChange(membership *models.Membership, actorID uuid.UUID, changes map[string]interface{}) error {
	log := models.NewAuditLog(models.AuditActionMembershipChange, "membership").
		WithOrg(membership.OrgID).
		WithUser(actorID).
		WithResource(membership.ID).
		WithDetails(map[string]interface{}{
			"member_user_id": membership.UserID,
			"role":           membership.Role,
			"changes":        changes,
		})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}
