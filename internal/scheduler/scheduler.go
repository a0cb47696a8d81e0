package scheduler

import (
	"context"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler 按 cron 周期触发 Relay，同一时刻最多只有一轮在跑
type Scheduler struct {
	cron  *cron.Cron
	relay *Relay

	ctx    context.Context
	cancel context.CancelFunc

	runMu sync.Mutex

	reportMu   sync.RWMutex
	lastReport *RunReport
}

func New(spec string, relay *Relay) (*Scheduler, error) {
	c := cron.New(cron.WithLogger(cron.PrintfLogger(log.Default())))
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:   c,
		relay:  relay,
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := c.AddFunc(spec, s.scheduled); err != nil {
		cancel()
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并取消正在进行的一轮，等待其结束
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.runMu.Lock()
	s.runMu.Unlock()
}

func (s *Scheduler) scheduled() {
	if !s.runMu.TryLock() {
		log.Println("relay still running, skip this tick")
		return
	}
	defer s.runMu.Unlock()
	s.run()
}

// Trigger 手动触发一轮，已有一轮在跑时返回 false
func (s *Scheduler) Trigger() bool {
	if !s.runMu.TryLock() {
		return false
	}
	go func() {
		defer s.runMu.Unlock()
		s.run()
	}()
	return true
}

// Running 是否有一轮正在进行
func (s *Scheduler) Running() bool {
	if s.runMu.TryLock() {
		s.runMu.Unlock()
		return false
	}
	return true
}

func (s *Scheduler) LastReport() (RunReport, bool) {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	if s.lastReport == nil {
		return RunReport{}, false
	}
	return *s.lastReport, true
}

func (s *Scheduler) run() {
	report := s.relay.RunOnce(s.ctx)
	s.reportMu.Lock()
	s.lastReport = &report
	s.reportMu.Unlock()
}
