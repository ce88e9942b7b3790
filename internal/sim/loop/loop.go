// Package loop drives a world and its breeding service at a fixed tick
// rate and routes client traffic into the loop goroutine.
package loop

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"breedcraft.ai/internal/persistence/snapshot"
	"breedcraft.ai/internal/protocol"
	"breedcraft.ai/internal/sim/breeding"
	"breedcraft.ai/internal/sim/world"
)

type Config struct {
	TickRateHz         int
	SnapshotEveryTicks int
	Digests            protocol.CatalogDigests
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

// UIEnvelope carries one pasture-menu request from a connected player.
type UIEnvelope struct {
	PlayerID uuid.UUID
	Req      protocol.UIRequestMsg
}

type leaveReq struct {
	playerID uuid.UUID
	out      chan []byte
}

type client struct {
	out     chan []byte
	dropped uint64
}

// Loop owns the world and the breeding service. Everything that touches them
// runs on the goroutine that calls Run.
type Loop struct {
	w   *world.World
	svc *breeding.Service
	cfg Config
	log *log.Logger

	join  chan JoinRequest
	leave chan leaveReq
	inbox chan UIEnvelope
	stop  chan struct{}

	clients map[uuid.UUID]*client

	snapshotSink chan<- snapshot.SnapshotV1

	tick         atomic.Uint64
	uiTotal      atomic.Uint64
	noticeDrops  atomic.Uint64
	snapshotDrop atomic.Uint64
}

func New(svc *breeding.Service, cfg Config, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	l := &Loop{
		w:       svc.World(),
		svc:     svc,
		cfg:     cfg,
		log:     logger,
		join:    make(chan JoinRequest, 64),
		leave:   make(chan leaveReq, 64),
		inbox:   make(chan UIEnvelope, 1024),
		stop:    make(chan struct{}),
		clients: map[uuid.UUID]*client{},
	}
	l.tick.Store(l.w.CurrentTick())
	return l
}

func (l *Loop) Join() chan<- JoinRequest   { return l.join }
func (l *Loop) Inbox() chan<- UIEnvelope   { return l.inbox }
func (l *Loop) CurrentTick() uint64        { return l.tick.Load() }
func (l *Loop) Config() Config             { return l.cfg }
func (l *Loop) Service() *breeding.Service { return l.svc }

// Leave disconnects the player unless a newer connection has taken over out.
func (l *Loop) Leave(playerID uuid.UUID, out chan []byte) {
	l.leave <- leaveReq{playerID: playerID, out: out}
}

// SetSnapshotSink must be called before Run.
func (l *Loop) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { l.snapshotSink = ch }

type Metrics struct {
	Tick               uint64
	UIRequestsTotal    uint64
	NoticeDropsTotal   uint64
	SnapshotDropsTotal uint64
}

func (l *Loop) Metrics() Metrics {
	return Metrics{
		Tick:               l.tick.Load(),
		UIRequestsTotal:    l.uiTotal.Load(),
		NoticeDropsTotal:   l.noticeDrops.Load(),
		SnapshotDropsTotal: l.snapshotDrop.Load(),
	}
}

func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingLeaves []leaveReq
	var pendingUI []UIEnvelope

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case req := <-l.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-l.leave:
			pendingLeaves = append(pendingLeaves, req)
		case env := <-l.inbox:
			pendingUI = append(pendingUI, env)
		case <-ticker.C:
			l.step(pendingJoins, pendingLeaves, pendingUI)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingUI = pendingUI[:0]
		}
	}
}

func (l *Loop) Stop() { close(l.stop) }

// StepOnce advances one tick with the given inputs, in the same order Run
// applies them. It is for tests and tools that drive the loop by hand.
func (l *Loop) StepOnce(joins []JoinRequest, leaves []uuid.UUID, ui []UIEnvelope) {
	var lr []leaveReq
	for _, id := range leaves {
		lr = append(lr, leaveReq{playerID: id})
	}
	l.step(joins, lr, ui)
}

func (l *Loop) step(joins []JoinRequest, leaves []leaveReq, ui []UIEnvelope) {
	for _, req := range joins {
		l.handleJoin(req)
	}
	for _, req := range leaves {
		l.handleLeave(req)
	}
	for _, env := range ui {
		l.uiTotal.Add(1)
		upd := l.svc.HandleUI(env.PlayerID, env.Req)
		upd.Tick = l.w.CurrentTick()
		l.send(env.PlayerID, upd)
	}

	nowTick := l.w.Step()
	l.svc.Tick(nowTick)
	l.tick.Store(nowTick)

	l.flushNotices(nowTick)

	if every := uint64(l.cfg.SnapshotEveryTicks); every > 0 && l.snapshotSink != nil && nowTick%every == 0 {
		snap := l.svc.ExportSnapshot()
		select {
		case l.snapshotSink <- snap:
		default:
			l.snapshotDrop.Add(1)
			l.log.Printf("snapshot sink full; dropped tick %d", nowTick)
		}
	}
}

func (l *Loop) handleJoin(req JoinRequest) {
	name := req.Name
	if name == "" {
		name = "player"
	}
	p := l.w.Connect(name)
	if req.Out != nil {
		l.clients[p.ID] = &client{out: req.Out}
	}
	resp := JoinResponse{Welcome: protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        p.ID.String(),
		WorldID:         l.w.ID(),
		TickRateHz:      l.cfg.TickRateHz,
		Catalogs:        l.cfg.Digests,
	}}
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (l *Loop) handleLeave(req leaveReq) {
	if cl, ok := l.clients[req.playerID]; ok {
		if req.out != nil && cl.out != req.out {
			return
		}
		delete(l.clients, req.playerID)
	}
	l.w.Disconnect(req.playerID)
}

// flushNotices hands each connected player the messages queued for them and
// the effects near them since the last tick.
func (l *Loop) flushNotices(nowTick uint64) {
	effects := l.w.DrainEffects()

	ids := make([]uuid.UUID, 0, len(l.clients))
	for id := range l.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		p := l.w.Player(id)
		if p == nil {
			continue
		}
		msgs := p.DrainMessages()
		var views []protocol.EffectView
		for _, e := range effects {
			if world.DistSq(e.Pos, p.Pos) > noticeRadius*noticeRadius {
				continue
			}
			views = append(views, protocol.EffectView{
				Kind:  string(e.Kind),
				Pos:   [3]float64{e.Pos.X, e.Pos.Y, e.Pos.Z},
				Count: e.Count,
				Tier:  e.Tier,
			})
		}
		if len(msgs) == 0 && len(views) == 0 {
			continue
		}
		l.send(id, protocol.NoticeMsg{
			Type:            protocol.TypeNotice,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			Messages:        msgs,
			Effects:         views,
		})
	}
}

// Effects farther than this from a player are not sent to them.
const noticeRadius = 96.0

func (l *Loop) send(playerID uuid.UUID, v any) {
	cl, ok := l.clients[playerID]
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		l.log.Printf("marshal for %s: %v", playerID, err)
		return
	}
	select {
	case cl.out <- b:
	default:
		cl.dropped++
		l.noticeDrops.Add(1)
	}
}
