package bot

import "testing"

func TestRoutesReplaceGuild(t *testing.T) {
	t.Parallel()

	r := NewRoutes()
	r.Set(GuildRoute{GuildID: "1", MainChannelID: "10", ModChannelID: "11"})
	if !r.IsMainChannel("10") || !r.IsModChannel("11") {
		t.Fatalf("channels were not indexed")
	}
	if r.IsModChannel("10") || r.IsMainChannel("11") {
		t.Fatalf("main and mod channels were mixed up")
	}

	r.Set(GuildRoute{GuildID: "1", MainChannelID: "20", ModChannelID: "21"})
	if r.IsMainChannel("10") || r.IsModChannel("11") {
		t.Fatalf("stale channels survived a route update")
	}
	route, ok := r.Guild("1")
	if !ok || route.MainChannelID != "20" || route.ModChannelID != "21" {
		t.Fatalf("unexpected route %+v", route)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one guild, got %d", r.Len())
	}
	if _, ok := r.Guild("2"); ok {
		t.Fatalf("unknown guild resolved")
	}
}

func TestGroupFromName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		group string
		ok    bool
	}{
		{name: "Group 12 Bot", group: "12", ok: true},
		{name: "group 3 bot", group: "3", ok: true},
		{name: "The Group 7 Bot (staging)", group: "7", ok: true},
		{name: "Group Bot", ok: false},
		{name: "modbot", ok: false},
	}
	for _, tt := range tests {
		group, ok := GroupFromName(tt.name)
		if ok != tt.ok || group != tt.group {
			t.Fatalf("%q: got (%q, %v), want (%q, %v)", tt.name, group, ok, tt.group, tt.ok)
		}
	}

	main, mod := ChannelNames("12")
	if main != "group-12" || mod != "group-12-mod" {
		t.Fatalf("unexpected channel names %q %q", main, mod)
	}
}
