package server

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestSweepExpiresOnce(t *testing.T) {
	h, clock := newTestHub(t)
	a, peerA := join(t, h)
	_, peerB := join(t, h)
	h.CreateProjectile(a, ProjectileCreateMessage{ID: "old"})
	clock.Advance(time.Second)
	h.CreateProjectile(a, ProjectileCreateMessage{ID: "young"})
	peerA.drain(t)
	peerB.drain(t)

	// 恰好 TTL 时尚未过期
	clock.Advance(h.Rules().ProjectileTTL - time.Second)
	if ids := h.SweepExpired(); len(ids) != 0 {
		t.Fatalf("swept %v at exactly ttl", ids)
	}

	clock.Advance(time.Millisecond)
	if ids := h.SweepExpired(); !reflect.DeepEqual(ids, []string{"old"}) {
		t.Fatalf("swept %v, want [old]", ids)
	}
	for name, p := range map[string]*fakePeer{"A": peerA, "B": peerB} {
		evs := p.drain(t)
		if len(evs) != 1 || evs[0].kind != MsgProjectileDestroy {
			t.Fatalf("%s events = %v, want one destroy", name, kindsOf(evs))
		}
		var m ProjectileDestroyMessage
		evs[0].decode(t, &m)
		if m.ID != "old" {
			t.Fatalf("%s destroy id = %q", name, m.ID)
		}
	}

	if ids := h.SweepExpired(); len(ids) != 0 {
		t.Fatalf("second sweep removed %v", ids)
	}
	if evs := peerB.drain(t); len(evs) != 0 {
		t.Fatalf("second sweep broadcast %v", kindsOf(evs))
	}
	if _, ok := h.store.GetProjectile("young"); !ok {
		t.Fatalf("young projectile swept")
	}
	m := h.Metrics()
	if m.Sweeps != 3 || m.Expired != 1 {
		t.Fatalf("sweeps=%d expired=%d, want 3 and 1", m.Sweeps, m.Expired)
	}
}

func TestSweepSkipsExplicitlyDestroyed(t *testing.T) {
	h, clock := newTestHub(t)
	a, _ := join(t, h)
	_, peerB := join(t, h)
	h.CreateProjectile(a, ProjectileCreateMessage{ID: "p1"})
	h.DestroyProjectile(a, ProjectileDestroyMessage{ID: "p1"})
	peerB.drain(t)

	clock.Advance(time.Hour)
	if ids := h.SweepExpired(); len(ids) != 0 {
		t.Fatalf("swept %v after explicit destroy", ids)
	}
	if evs := peerB.drain(t); len(evs) != 0 {
		t.Fatalf("sweep rebroadcast %v", kindsOf(evs))
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.RunSweeper(ctx, 5*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunSweeper returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("RunSweeper did not return after cancel")
	}
}
