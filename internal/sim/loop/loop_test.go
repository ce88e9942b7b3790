package loop

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"breedcraft.ai/internal/persistence/snapshot"
	"breedcraft.ai/internal/protocol"
	"breedcraft.ai/internal/sim/breeding"
	"breedcraft.ai/internal/sim/catalogs"
	"breedcraft.ai/internal/sim/tuning"
	"breedcraft.ai/internal/sim/world"
)

func newLoop(t *testing.T) (*Loop, *world.Enclosure) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tun := tuning.Defaults()
	tun.World.WanderEveryTicks = 0
	w, err := world.New(world.ConfigFromTuning("test", 7, tun.World), cats, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	enc, err := w.PlaceEnclosure(world.Vec3i{X: 0, Y: w.SurfaceY(), Z: 0})
	if err != nil {
		t.Fatalf("place enclosure: %v", err)
	}
	svc := breeding.New(w, breeding.ConfigFromTuning(tun), nil, nil)
	svc.EnclosurePlaced(enc)
	l := New(svc, Config{
		TickRateHz:         tun.TickRateHz,
		SnapshotEveryTicks: 10,
		Digests:            protocol.CatalogDigests{Species: cats.Species.Digest},
	}, nil)
	return l, enc
}

func join(t *testing.T, l *Loop, name string) (uuid.UUID, chan []byte) {
	t.Helper()
	out := make(chan []byte, 16)
	resp := make(chan JoinResponse, 1)
	l.StepOnce([]JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil)
	welcome := (<-resp).Welcome
	id, err := uuid.Parse(welcome.PlayerID)
	if err != nil {
		t.Fatalf("welcome player id %q: %v", welcome.PlayerID, err)
	}
	return id, out
}

// drain decodes every queued message by type.
func drain(t *testing.T, out chan []byte) map[string][]json.RawMessage {
	t.Helper()
	got := map[string][]json.RawMessage{}
	for {
		select {
		case b := <-out:
			base, err := protocol.DecodeBase(b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			got[base.Type] = append(got[base.Type], b)
		default:
			return got
		}
	}
}

func TestJoin_WelcomesAndConnects(t *testing.T) {
	l, _ := newLoop(t)
	out := make(chan []byte, 4)
	resp := make(chan JoinResponse, 1)
	l.StepOnce([]JoinRequest{{Name: "ash", Out: out, Resp: resp}}, nil, nil)
	w := (<-resp).Welcome
	if w.Type != protocol.TypeWelcome || w.ProtocolVersion != protocol.Version || w.WorldID != "test" {
		t.Fatalf("welcome=%+v", w)
	}
	if w.Catalogs.Species == "" || w.TickRateHz != l.Config().TickRateHz {
		t.Fatalf("welcome missing config: %+v", w)
	}
	p := l.svc.World().PlayerByName("ash")
	if p == nil || !p.Online || p.ID.String() != w.PlayerID {
		t.Fatalf("player=%+v", p)
	}

	// Reconnecting by name keeps the same player.
	id2, _ := join(t, l, "ash")
	if id2 != p.ID {
		t.Fatalf("reconnect id=%s want %s", id2, p.ID)
	}
}

func TestUIRequest_AnsweredOnClientQueue(t *testing.T) {
	l, enc := newLoop(t)
	id, out := join(t, l, "ash")
	drain(t, out)

	req := protocol.UIRequestMsg{
		Type: protocol.TypeUI, ProtocolVersion: protocol.Version,
		ReqID: "r1", Action: protocol.ActionView, Enclosure: enc.Key.Pos.ToArray(),
	}
	l.StepOnce(nil, nil, []UIEnvelope{{PlayerID: id, Req: req}})

	msgs := drain(t, out)[protocol.TypeUIUpdate]
	if len(msgs) != 1 {
		t.Fatalf("ui updates=%d want 1", len(msgs))
	}
	var upd protocol.UIUpdateMsg
	if err := json.Unmarshal(msgs[0], &upd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !upd.Accepted || upd.ReqID != "r1" || upd.View == nil || upd.View.Enclosure != enc.Key.Pos.ToArray() {
		t.Fatalf("update=%+v", upd)
	}
	if l.Metrics().UIRequestsTotal != 1 {
		t.Fatalf("metrics=%+v", l.Metrics())
	}
}

func TestNotices_MessagesAndNearbyEffects(t *testing.T) {
	l, enc := newLoop(t)
	id, out := join(t, l, "ash")
	drain(t, out)

	w := l.svc.World()
	p := w.Player(id)
	p.Pos = enc.Key.Pos.Center()
	p.Notify("hello")
	w.Emit(world.Effect{Kind: world.EffectHearts, Pos: p.Pos, Count: 3})
	w.Emit(world.Effect{Kind: world.EffectHearts, Pos: r3.Add(p.Pos, r3.Vec{X: 500})})
	l.StepOnce(nil, nil, nil)

	msgs := drain(t, out)[protocol.TypeNotice]
	if len(msgs) != 1 {
		t.Fatalf("notices=%d want 1", len(msgs))
	}
	var n protocol.NoticeMsg
	if err := json.Unmarshal(msgs[0], &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(n.Messages) != 1 || n.Messages[0] != "hello" {
		t.Fatalf("messages=%v", n.Messages)
	}
	if len(n.Effects) != 1 || n.Effects[0].Kind != string(world.EffectHearts) || n.Effects[0].Count != 3 {
		t.Fatalf("effects=%+v", n.Effects)
	}

	// Nothing queued means no notice.
	l.StepOnce(nil, nil, nil)
	if got := drain(t, out); len(got) != 0 {
		t.Fatalf("unexpected messages %v", got)
	}
}

func TestLeave_StaleConnectionIgnored(t *testing.T) {
	l, _ := newLoop(t)
	id, oldOut := join(t, l, "ash")
	_, newOut := join(t, l, "ash")

	// The first connection closing must not disconnect the second.
	l.step(nil, []leaveReq{{playerID: id, out: oldOut}}, nil)
	if p := l.svc.World().Player(id); !p.Online {
		t.Fatalf("stale leave disconnected the player")
	}
	l.step(nil, []leaveReq{{playerID: id, out: newOut}}, nil)
	if p := l.svc.World().Player(id); p.Online {
		t.Fatalf("player still online after leave")
	}
	l.svc.World().Player(id).Notify("late")
	l.StepOnce(nil, nil, nil)
	if got := drain(t, newOut); len(got[protocol.TypeNotice]) != 0 {
		t.Fatalf("notice delivered after leave")
	}
}

func TestSnapshotSink_EveryConfiguredTick(t *testing.T) {
	l, _ := newLoop(t)
	sink := make(chan snapshot.SnapshotV1, 4)
	l.SetSnapshotSink(sink)
	for i := 0; i < 25; i++ {
		l.StepOnce(nil, nil, nil)
	}
	var ticks []uint64
	for len(sink) > 0 {
		ticks = append(ticks, (<-sink).Header.Tick)
	}
	if len(ticks) != 2 || ticks[0] != 10 || ticks[1] != 20 {
		t.Fatalf("snapshot ticks=%v want [10 20]", ticks)
	}
}

func TestSnapshotSink_FullDrops(t *testing.T) {
	l, _ := newLoop(t)
	l.SetSnapshotSink(make(chan snapshot.SnapshotV1))
	for i := 0; i < 10; i++ {
		l.StepOnce(nil, nil, nil)
	}
	if got := l.Metrics().SnapshotDropsTotal; got != 1 {
		t.Fatalf("snapshot drops=%d want 1", got)
	}
}

func TestRun_ServesJoinsUntilCancelled(t *testing.T) {
	l, _ := newLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	resp := make(chan JoinResponse, 1)
	l.Join() <- JoinRequest{Name: "misty", Out: make(chan []byte, 8), Resp: resp}
	select {
	case r := <-resp:
		if r.Welcome.PlayerID == "" {
			t.Fatalf("empty welcome")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("join not served")
	}
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("run err=%v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
	if l.CurrentTick() == 0 {
		t.Fatalf("loop never ticked")
	}
}
