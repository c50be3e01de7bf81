package directory

import "testing"

func FuzzParseFixtures(f *testing.F) {
	f.Add([]byte(fixtureJSON))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"users":[{"id":"a","role":"admin"}],"listings":[{"id":"l","teacherId":"a"}]}`))

	f.Fuzz(func(t *testing.T, raw []byte) {
		fx, err := ParseFixtures(raw)
		if err != nil {
			return
		}
		users := make(map[string]bool)
		for _, u := range fx.DomainUsers() {
			users[u.ID] = true
		}
		for _, l := range fx.DomainListings() {
			if !users[l.TeacherID] {
				t.Fatalf("listing %s accepted with unknown teacher", l.ID)
			}
		}
		if len(fx.DomainSessions()) != len(fx.Sessions) {
			t.Fatalf("session conversion dropped entries")
		}
	})
}
