package bot

import (
	"fmt"
	"regexp"
	"sync"
)

var groupNamePattern = regexp.MustCompile(`[gG]roup (\d+) [bB]ot`)

// GuildRoute is the channel pair the bot works with in one guild.
type GuildRoute struct {
	GuildID       string
	MainChannelID string
	ModChannelID  string
}

// Routes maps guilds to their main and moderation channels. It is filled once the
// gateway reports ready and read by every handler afterwards.
type Routes struct {
	mu       sync.RWMutex
	byGuild  map[string]GuildRoute
	mainChan map[string]string
	modChan  map[string]string
}

func NewRoutes() *Routes {
	return &Routes{
		byGuild:  make(map[string]GuildRoute),
		mainChan: make(map[string]string),
		modChan:  make(map[string]string),
	}
}

func (r *Routes) Set(route GuildRoute) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byGuild[route.GuildID]; ok {
		delete(r.mainChan, prev.MainChannelID)
		delete(r.modChan, prev.ModChannelID)
	}
	r.byGuild[route.GuildID] = route
	if route.MainChannelID != "" {
		r.mainChan[route.MainChannelID] = route.GuildID
	}
	if route.ModChannelID != "" {
		r.modChan[route.ModChannelID] = route.GuildID
	}
}

func (r *Routes) Guild(guildID string) (GuildRoute, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.byGuild[guildID]
	return route, ok
}

func (r *Routes) IsMainChannel(channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.mainChan[channelID]
	return ok
}

func (r *Routes) IsModChannel(channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modChan[channelID]
	return ok
}

func (r *Routes) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byGuild)
}

// ChannelNames returns the main and moderation channel names for a group.
func ChannelNames(group string) (main, mod string) {
	main = fmt.Sprintf("group-%s", group)
	return main, main + "-mod"
}

// GroupFromName extracts the group number from a bot name like "Group 12 Bot".
func GroupFromName(name string) (string, bool) {
	m := groupNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}
