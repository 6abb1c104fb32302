package combine

import (
	"fmt"
	"strings"
)

// Channel is one "name=card" argument of the card combination tool.
type Channel struct {
	Name string
	Card string
}

// Arg returns "name=card".
func (c Channel) Arg() string { return c.Name + "=" + c.Card }

// ParseChannel splits "name=card" at the first '='.
func ParseChannel(arg string) (Channel, bool) {
	name, card, ok := strings.Cut(arg, "=")
	if !ok {
		return Channel{}, false
	}
	return Channel{Name: name, Card: card}, true
}

// Renumber rewrites channel names to ch1_, ch2_, ... in order, keeping
// everything after the first '_' of the old name. Channels from different
// merged cards then never collide.
func Renumber(channels []Channel) []Channel {
	out := make([]Channel, len(channels))
	for i, c := range channels {
		rest := c.Name
		if _, after, ok := strings.Cut(c.Name, "_"); ok {
			rest = after
		}
		out[i] = Channel{Name: fmt.Sprintf("ch%d_%s", i+1, rest), Card: c.Card}
	}
	return out
}

// Dedup drops repeated channels, keeping the first occurrence.
func Dedup(channels []Channel) []Channel {
	seen := make(map[Channel]struct{}, len(channels))
	out := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Args returns the tool arguments for channels.
func Args(channels []Channel) []string {
	args := make([]string, len(channels))
	for i, c := range channels {
		args[i] = c.Arg()
	}
	return args
}
