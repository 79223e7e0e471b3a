package navigator

import (
	"sync"
	"time"

	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"github.com/waypoint-labs/waypoint/util"
	"go.uber.org/zap"
)

// DecisionSink receives boundary-event decisions discovered by the poller.
type DecisionSink func(loc model.Location, decision *model.NavigationDecision)

type watchedLocation struct {
	doc  []byte
	loc  model.Location
	sctx *model.SubroutineContext
}

// BoundaryEventPoller periodically re-evaluates boundary events for every
// watched location and hands non-empty decisions to the sink. Timer and cron
// triggers are polled, never awaited in-process.
type BoundaryEventPoller struct {
	nav  Navigator
	sink DecisionSink

	mu      sync.Mutex
	watches map[string]watchedLocation

	tick *util.TickWorker
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewBoundaryEventPoller(nav Navigator, interval time.Duration, sink DecisionSink) *BoundaryEventPoller {
	p := &BoundaryEventPoller{
		nav:     nav,
		sink:    sink,
		watches: make(map[string]watchedLocation),
		stop:    make(chan struct{}),
	}
	p.tick = util.NewTickWorker("boundary-event-poller", interval, p.stop, p.poll, &p.wg)
	return p
}

func (p *BoundaryEventPoller) Start() {
	if p.tick.IsRunning() {
		return
	}
	p.tick.Start()
}

func (p *BoundaryEventPoller) Stop() {
	if !p.tick.IsRunning() {
		return
	}
	p.tick.Stop()
	p.wg.Wait()
}

func (p *BoundaryEventPoller) Watch(doc []byte, loc model.Location, sctx *model.SubroutineContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watches[watchKey(loc)] = watchedLocation{doc: doc, loc: loc, sctx: sctx}
}

func (p *BoundaryEventPoller) Unwatch(loc model.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watches, watchKey(loc))
}

func (p *BoundaryEventPoller) poll() {
	p.mu.Lock()
	snapshot := make([]watchedLocation, 0, len(p.watches))
	for _, w := range p.watches {
		snapshot = append(snapshot, w)
	}
	p.mu.Unlock()

	for _, w := range snapshot {
		decision, err := p.nav.GetTriggeredBoundaryEvents(w.doc, w.loc, w.sctx)
		if err != nil {
			logger.Error("error polling boundary events", zap.String("location", w.loc.LocationId), zap.Error(err))
			continue
		}
		if len(decision.NextLocations) == 0 && decision.IsNodeStillActive {
			continue
		}
		if !decision.IsNodeStillActive {
			p.Unwatch(w.loc)
		}
		p.sink(w.loc, decision)
	}
}

func watchKey(loc model.Location) string {
	return loc.ObjectId + ":" + loc.SubroutineId + ":" + loc.LocationId
}
