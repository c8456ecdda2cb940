package service

import "time"

func (s *TransactionService) SetClock(now func() time.Time) { s.now = now }

func (s *ReportService) SetClock(now func() time.Time) { s.now = now }

func (q *SyncQueue) SetClock(now func() time.Time) { q.now = now }
