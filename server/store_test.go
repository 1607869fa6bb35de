package server

import (
	"testing"
	"time"
)

func TestStorePlayers(t *testing.T) {
	s := NewStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.UpsertPlayer(Player{ID: "b", DisplayName: "B", JoinedAt: t0.Add(time.Second)})
	s.UpsertPlayer(Player{ID: "a", DisplayName: "A", JoinedAt: t0})

	list := s.ListPlayers()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("list = %+v", list)
	}

	got, ok := s.UpdatePlayer("a", func(p *Player) { p.Position = Vec3{X: 5} })
	if !ok || got.Position.X != 5 {
		t.Fatalf("update = %+v %v", got, ok)
	}
	if _, ok := s.UpdatePlayer("missing", func(*Player) { t.Fatal("called for missing player") }); ok {
		t.Fatalf("update of missing player succeeded")
	}

	// 返回的是拷贝
	got.DisplayName = "changed"
	if p, _ := s.GetPlayer("a"); p.DisplayName != "A" {
		t.Fatalf("store aliased caller copy")
	}

	if _, ok := s.RemovePlayer("a"); !ok {
		t.Fatalf("remove failed")
	}
	if _, ok := s.RemovePlayer("a"); ok {
		t.Fatalf("second remove succeeded")
	}
	if s.PlayerCount() != 1 {
		t.Fatalf("count = %d", s.PlayerCount())
	}
}

func TestStoreProjectiles(t *testing.T) {
	s := NewStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if !s.InsertProjectile(Projectile{ID: "p1", OwnerID: "a", Kind: "arrow", CreatedAt: t0}) {
		t.Fatalf("insert failed")
	}
	if s.InsertProjectile(Projectile{ID: "p1", OwnerID: "b", Kind: "rock", CreatedAt: t0}) {
		t.Fatalf("duplicate insert succeeded")
	}
	if p, _ := s.GetProjectile("p1"); p.OwnerID != "a" || p.Kind != "arrow" {
		t.Fatalf("duplicate changed record: %+v", p)
	}

	s.InsertProjectile(Projectile{ID: "p2", OwnerID: "a", CreatedAt: t0.Add(time.Second)})
	s.InsertProjectile(Projectile{ID: "p3", OwnerID: "b", CreatedAt: t0.Add(2 * time.Second)})

	if !s.HasProjectiles("p1", "p3") || s.HasProjectiles("p1", "nope") {
		t.Fatalf("HasProjectiles wrong")
	}

	owned := s.RemoveOwnedBy("a")
	if len(owned) != 2 || owned[0].ID != "p1" || owned[1].ID != "p2" {
		t.Fatalf("owned = %+v", owned)
	}
	if s.ProjectileCount() != 1 {
		t.Fatalf("count = %d, want 1", s.ProjectileCount())
	}

	expired := s.RemoveExpired(t0.Add(10*time.Second), 5*time.Second)
	if len(expired) != 1 || expired[0].ID != "p3" {
		t.Fatalf("expired = %+v", expired)
	}
	if _, ok := s.RemoveProjectile("p3"); ok {
		t.Fatalf("removed already expired projectile")
	}
}

func TestStoreSnapshot(t *testing.T) {
	s := NewStore()
	created := time.UnixMilli(1714564800123)
	s.UpsertPlayer(Player{ID: "a", DisplayName: "A", Rotation: Quat{W: 1}})
	s.UpsertProjectile(Projectile{ID: "p1", OwnerID: "a", CreatedAt: created})

	players, projectiles := s.Snapshot()
	if players["a"].DisplayName != "A" || players["a"].Rotation.W != 1 {
		t.Fatalf("players = %+v", players)
	}
	if projectiles["p1"].CreatedAt != 1714564800123 {
		t.Fatalf("createdAt = %d", projectiles["p1"].CreatedAt)
	}

	// 快照与存储相互独立
	delete(players, "a")
	if s.PlayerCount() != 1 {
		t.Fatalf("snapshot aliased store map")
	}
}

func TestCanStartAttack(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"never attacked", time.Time{}, t0, true},
		{"inside window", t0, t0.Add(499 * time.Millisecond), false},
		{"at boundary", t0, t0.Add(500 * time.Millisecond), true},
		{"after window", t0, t0.Add(time.Second), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Player{LastAttack: tc.last}
			if got := p.canStartAttack(tc.now, 500*time.Millisecond); got != tc.want {
				t.Fatalf("canStartAttack = %v, want %v", got, tc.want)
			}
		})
	}
}
