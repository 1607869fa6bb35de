package server

import (
	"errors"
	"reflect"
	"testing"
)

func TestDisconnectCascade(t *testing.T) {
	h, _ := newTestHub(t)
	a, peerA := join(t, h)
	b, peerB := join(t, h)
	h.CreateProjectile(a, ProjectileCreateMessage{ID: "p1"})
	h.CreateProjectile(a, ProjectileCreateMessage{ID: "p2"})
	h.CreateProjectile(b, ProjectileCreateMessage{ID: "pb"})
	peerA.drain(t)
	peerB.drain(t)

	if !h.Disconnect(a) {
		t.Fatalf("disconnect %s removed nothing", a)
	}

	evs := peerB.drain(t)
	want := []string{MsgProjectileDestroy, MsgProjectileDestroy, MsgKillPlayer, MsgPlayerCount}
	if got := kindsOf(evs); !reflect.DeepEqual(got, want) {
		t.Fatalf("B events = %v, want %v", got, want)
	}
	destroyed := map[string]bool{}
	for _, e := range evs[:2] {
		var m ProjectileDestroyMessage
		e.decode(t, &m)
		destroyed[m.ID] = true
	}
	if !destroyed["p1"] || !destroyed["p2"] {
		t.Fatalf("destroyed = %v, want p1 and p2", destroyed)
	}
	var kill KillPlayerMessage
	evs[2].decode(t, &kill)
	if kill.ID != a {
		t.Fatalf("killPlayer id = %q, want %q", kill.ID, a)
	}
	var count int
	evs[3].decode(t, &count)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	if evs := peerA.drain(t); len(evs) != 0 {
		t.Fatalf("leaver got %v", kindsOf(evs))
	}
	if !peerA.isClosed() {
		t.Fatalf("leaver transport not closed")
	}
	if h.IsLive(a) {
		t.Fatalf("%s still live", a)
	}
	if _, ok := h.store.GetPlayer(a); ok {
		t.Fatalf("player record survived")
	}
	if _, ok := h.store.GetProjectile("pb"); !ok {
		t.Fatalf("other player's projectile removed")
	}
	if h.store.ProjectileCount() != 1 {
		t.Fatalf("projectiles = %d, want 1", h.store.ProjectileCount())
	}

	// 重复断开不再产生任何事件
	if h.Disconnect(a) {
		t.Fatalf("second disconnect reported removal")
	}
	if evs := peerB.drain(t); len(evs) != 0 {
		t.Fatalf("second disconnect broadcast %v", kindsOf(evs))
	}
}

func TestDisconnectBeforeJoin(t *testing.T) {
	h, _ := newTestHub(t)
	_, peerA := join(t, h)
	lurkerID, lurker := connect(t, h)
	peerA.drain(t)

	if h.Disconnect(lurkerID) {
		t.Fatalf("unjoined disconnect reported player removal")
	}
	if evs := peerA.drain(t); len(evs) != 0 {
		t.Fatalf("unjoined disconnect broadcast %v", kindsOf(evs))
	}
	if !lurker.isClosed() || h.IsLive(lurkerID) {
		t.Fatalf("unjoined connection not cleaned up")
	}
}

func TestLeaverCannotBeJoinedAgain(t *testing.T) {
	h, _ := newTestHub(t)
	a, _ := join(t, h)
	h.Disconnect(a)
	if err := h.Join(a); !errors.Is(err, ErrUnknownConnection) {
		t.Fatalf("join after disconnect err = %v", err)
	}
}

func TestKick(t *testing.T) {
	h, _ := newTestHub(t)
	a, peerA := join(t, h)
	if !h.Kick(a) {
		t.Fatalf("kick %s failed", a)
	}
	if !peerA.isClosed() || h.Count() != 0 {
		t.Fatalf("kick did not run the disconnect cascade")
	}
	if h.Kick(a) {
		t.Fatalf("second kick succeeded")
	}
}

func TestSlowPeerDropped(t *testing.T) {
	h, _ := newTestHub(t)
	a, peerA := join(t, h)
	slowID, slow := join(t, h)
	peerA.drain(t)
	slow.drain(t)

	slow.mu.Lock()
	slow.limit = 2
	slow.mu.Unlock()

	for i := 0; i < 5; i++ {
		h.Transform(a, TransformMessage{Pos: Vec3{X: float64(i)}})
	}

	if h.IsLive(slowID) {
		t.Fatalf("saturated peer still live")
	}
	if !slow.isClosed() {
		t.Fatalf("saturated peer not closed")
	}
	if _, ok := h.store.GetPlayer(slowID); ok {
		t.Fatalf("saturated peer's player not removed")
	}
	if got := h.Metrics().PeersDropped; got != 1 {
		t.Fatalf("peers dropped = %d, want 1", got)
	}
	evs := peerA.drain(t)
	kills := filterKind(evs, MsgKillPlayer)
	if len(kills) != 1 {
		t.Fatalf("A events = %v, want one killPlayer", kindsOf(evs))
	}
	var kill KillPlayerMessage
	kills[0].decode(t, &kill)
	if kill.ID != slowID {
		t.Fatalf("killPlayer id = %q, want %q", kill.ID, slowID)
	}
}

func TestShutdownClosesEveryone(t *testing.T) {
	h, _ := newTestHub(t)
	_, peerA := join(t, h)
	_, peerB := join(t, h)
	_, lurker := connect(t, h)

	h.Shutdown()

	for name, p := range map[string]*fakePeer{"A": peerA, "B": peerB, "lurker": lurker} {
		if !p.isClosed() {
			t.Fatalf("%s not closed", name)
		}
	}
	if h.Count() != 0 || h.Status().Connections != 0 {
		t.Fatalf("status after shutdown = %+v", h.Status())
	}
}

func TestClosedPeerDroppedWithoutSaturation(t *testing.T) {
	h, _ := newTestHub(t)
	a, peerA := join(t, h)
	deadID, dead := join(t, h)
	peerA.drain(t)

	// 传输层已自行关闭（写出错），Hub 尚未收到断开
	_ = dead.Close()
	h.Transform(a, TransformMessage{Pos: Vec3{X: 1}})

	if h.IsLive(deadID) {
		t.Fatalf("closed peer still live")
	}
	if _, ok := h.store.GetPlayer(deadID); ok {
		t.Fatalf("closed peer's player not removed")
	}
	if got := h.Metrics().PeersDropped; got != 0 {
		t.Fatalf("peers dropped = %d, want 0 for a closed transport", got)
	}
	if kills := filterKind(peerA.drain(t), MsgKillPlayer); len(kills) != 1 {
		t.Fatalf("killPlayer events = %d, want 1", len(kills))
	}
}
