package thread

import (
	"github.com/nbd-wtf/go-nostr"
)

// ReplyLinks is the normalized form of an event's reply-link tags: which
// event it replies to, and (when stated) the root of its conversation.
type ReplyLinks struct {
	RootID   string
	ParentID string
}

// linkParser is one tag-convention strategy. Parsers are tried in a fixed
// priority order; the first non-nil result wins.
type linkParser func(evt *nostr.Event) *ReplyLinks

var linkParsers = []linkParser{
	parseMarkedLinks,
	parseStructuredLinks,
	parseBareLinks,
}

// ParseReplyLinks resolves an event's reply links across the accepted tag
// conventions. Returns nil when the event does not reply to anything.
func ParseReplyLinks(evt *nostr.Event) *ReplyLinks {
	for _, parse := range linkParsers {
		if links := parse(evt); links != nil {
			return links
		}
	}
	return nil
}

// parseMarkedLinks handles the legacy positional convention with explicit
// markers: ["e", <id>, <relay hint?>, "root"|"reply"]. A reply directly to
// the thread root carries only the "root" marker.
func parseMarkedLinks(evt *nostr.Event) *ReplyLinks {
	var links ReplyLinks
	for _, tag := range evt.Tags {
		if len(tag) < 4 || tag[0] != "e" {
			continue
		}
		switch tag[3] {
		case "root":
			links.RootID = tag[1]
		case "reply":
			links.ParentID = tag[1]
		}
	}
	if links.RootID == "" && links.ParentID == "" {
		return nil
	}
	if links.ParentID == "" {
		links.ParentID = links.RootID
	}
	return &links
}

// parseStructuredLinks handles the convention where a reply names its parent
// explicitly: ["e", <parent id>] accompanied by ["k", <parent kind>] and
// usually ["p", <parent author>]. The presence of a "k" tag is what
// distinguishes this shape from a bare legacy e-tag.
func parseStructuredLinks(evt *nostr.Event) *ReplyLinks {
	hasKind := false
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "k" {
			hasKind = true
			break
		}
	}
	if !hasKind {
		return nil
	}
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "e" && tag[1] != "" {
			return &ReplyLinks{ParentID: tag[1]}
		}
	}
	return nil
}

// parseBareLinks handles a single unmarked ["e", <id>] tag, which legacy
// clients emit for a direct reply.
func parseBareLinks(evt *nostr.Event) *ReplyLinks {
	var ids []string
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "e" && tag[1] != "" {
			ids = append(ids, tag[1])
		}
	}
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return &ReplyLinks{ParentID: ids[0]}
	default:
		// positional: first references the root, last the immediate parent
		return &ReplyLinks{RootID: ids[0], ParentID: ids[len(ids)-1]}
	}
}
