// Package report resolves user reports into actionable review context: the
// reported target, the surrounding conversation, and reputation signals for
// both parties.
package report

import (
	"errors"
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

type TargetType string

const (
	TargetEvent  TargetType = "event"
	TargetPubkey TargetType = "pubkey"
)

// Target is what a report concerns: a specific event or an identity, with an
// optional reporter-asserted category.
type Target struct {
	Type     TargetType
	Value    string
	Category string
	// ReportedPubkey is the author identity named alongside an event target,
	// when the report carries one.
	ReportedPubkey string
}

var ErrNoTarget = errors.New("report names no target")

// ResolveTarget extracts the canonical target from a report event. An e-tag
// target outranks a p-tag target; when both are present the p-tag identifies
// the reported content's author. Category conventions, tried in priority
// order: a ["report", reason] tag, the target tag's third element, and the
// namespaced ["L", ns] / ["l", "NS-"+category, ns] label pair.
func ResolveTarget(evt *nostr.Event) (*Target, error) {
	target := &Target{}
	for _, tag := range evt.Tags {
		if len(tag) < 2 || tag[1] == "" {
			continue
		}
		switch tag[0] {
		case "e":
			if target.Type != TargetEvent {
				target.Type = TargetEvent
				target.Value = tag[1]
				if len(tag) >= 3 && tag[2] != "" {
					target.Category = tag[2]
				}
			}
		case "p":
			if target.Type == TargetEvent {
				if target.ReportedPubkey == "" {
					target.ReportedPubkey = tag[1]
				}
			} else if target.Type != TargetPubkey {
				target.Type = TargetPubkey
				target.Value = tag[1]
				if len(tag) >= 3 && tag[2] != "" {
					target.Category = tag[2]
				}
			}
		}
	}
	if target.Type == "" {
		return nil, ErrNoTarget
	}
	if target.Type == TargetPubkey {
		target.ReportedPubkey = target.Value
	}
	if cat := reportTagCategory(evt); cat != "" {
		target.Category = cat
	} else if target.Category == "" {
		target.Category = labelCategory(evt)
	}
	return target, nil
}

// reportTagCategory reads the oldest convention, a dedicated ["report",
// reason] tag.
func reportTagCategory(evt *nostr.Event) string {
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "report" && tag[1] != "" {
			return tag[1]
		}
	}
	return ""
}

// labelCategory reads the namespaced label form: ["L", ns] declares the
// namespace, ["l", "NS-"+category, ns] carries the value.
func labelCategory(evt *nostr.Event) string {
	namespaces := make(map[string]bool)
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "L" {
			namespaces[tag[1]] = true
		}
	}
	for _, tag := range evt.Tags {
		if len(tag) < 3 || tag[0] != "l" {
			continue
		}
		if !namespaces[tag[2]] {
			continue
		}
		if cat, ok := strings.CutPrefix(tag[1], "NS-"); ok {
			return cat
		}
	}
	return ""
}
