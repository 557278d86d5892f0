// Package audit persists one selection record per routing decision. Writes
// are asynchronous and best-effort; a slow or failing store never blocks or
// fails the request that produced the record.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/router-for-me/RoutingEngine/internal/estimator"
	"github.com/router-for-me/RoutingEngine/internal/models"
	"github.com/router-for-me/RoutingEngine/internal/selector"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultQueueSize = 256
	writeTimeout     = 5 * time.Second
)

// Sink buffers selection records and writes them from a background worker.
type Sink struct {
	db      *gorm.DB
	queue   chan models.SelectionRecord
	wg      sync.WaitGroup
	closing sync.Once
}

// NewSink constructs a Sink and starts its writer. A nil db yields a sink
// that drops every record.
func NewSink(db *gorm.DB) *Sink {
	s := &Sink{db: db, queue: make(chan models.SelectionRecord, defaultQueueSize)}
	s.wg.Add(1)
	go s.run()
	return s
}

// Record enqueues one decision. It never blocks; when the queue is full the
// record is dropped and counted as a debug event.
func (s *Sink) Record(req selector.Request, response *selector.Response, cacheHit bool) {
	if s == nil || response == nil {
		return
	}

	row := models.SelectionRecord{
		RequestID:           req.RequestID,
		UserID:              req.Metadata.UserID,
		TeamID:              req.Metadata.TeamID,
		OrgID:               req.Metadata.OrgID,
		TaskType:            req.Metadata.TaskType,
		Provider:            response.Provider,
		Model:               response.ModelID,
		EstimatedCostMicros: estimator.CostMicros(response.EstimatedCost),
		QualityScore:        response.QualityExpectation,
		BudgetStatus:        string(response.BudgetStatus),
		BudgetImpact:        response.BudgetImpact,
		Reasoning:           response.Reasoning,
		CacheHit:            cacheHit,
	}
	if encoded, errMarshal := json.Marshal(response.Alternatives); errMarshal == nil {
		row.Alternatives = datatypes.JSON(encoded)
	}
	if encoded, errMarshal := json.Marshal(response.FallbackChain); errMarshal == nil {
		row.FallbackChain = datatypes.JSON(encoded)
	}

	select {
	case s.queue <- row:
	default:
		log.Debugf("audit queue full, dropping record for request %s", req.RequestID)
	}
}

// run drains the queue until Close.
func (s *Sink) run() {
	defer s.wg.Done()
	for row := range s.queue {
		s.write(row)
	}
}

// write persists one row with its own timeout, detached from the request
// context so cancellation upstream cannot abort an audit write in flight.
func (s *Sink) write(row models.SelectionRecord) {
	if s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Warnf("audit write failed for request %s", row.RequestID)
	}
}

// Close stops accepting records and waits for queued writes to finish.
func (s *Sink) Close() {
	if s == nil {
		return
	}
	s.closing.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}
