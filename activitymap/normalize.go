package activitymap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-wodstrat"
)

const (
	// MetadataKeyActorType stores the actor type derived from wodstrat.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyAthleteID is read as the object id of athlete events.
	MetadataKeyAthleteID = "athlete_id"
	// MetadataKeyPath is read as the object id of gate events.
	MetadataKeyPath = "path"
)

const (
	defaultObjectType = "user"
	defaultActorID    = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(wodstrat.ActivityEvent) string
}

// Normalize converts a wodstrat.ActivityEvent into a generic normalized shape.
func Normalize(event wodstrat.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(event.UserID),
		strings.TrimSpace(options.actorFallback),
	)

	objectID := resolveObjectID(event, options.objectIDResolver)
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: resolveObjectType(event, options.objectType),
		ObjectID:   objectID,
		Channel:    resolveChannel(event, options.channel),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel pins the channel. By default it is the verb prefix,
// e.g. "auth" for auth.login.success.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for events that are not
// athlete or gate events.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(wodstrat.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the final actor-id fallback when actor/user ids are empty.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func resolveObjectID(event wodstrat.ActivityEvent, resolver func(wodstrat.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}

	switch channelOf(event) {
	case "athlete":
		if id := metadataString(event.Metadata, MetadataKeyAthleteID); id != "" {
			return id
		}
	case "gate":
		if path := metadataString(event.Metadata, MetadataKeyPath); path != "" {
			return path
		}
	}

	return strings.TrimSpace(event.UserID)
}

func resolveChannel(event wodstrat.ActivityEvent, override string) string {
	if channel := strings.TrimSpace(override); channel != "" {
		return channel
	}
	return channelOf(event)
}

func resolveObjectType(event wodstrat.ActivityEvent, fallback string) string {
	switch channelOf(event) {
	case "athlete":
		return "athlete"
	case "gate":
		return "route"
	}
	return strings.TrimSpace(fallback)
}

// channelOf is the verb segment before the first dot
func channelOf(event wodstrat.ActivityEvent) string {
	verb := string(event.EventType)
	if i := strings.IndexByte(verb, '.'); i > 0 {
		return verb[:i]
	}
	return verb
}

func metadataString(metadata map[string]any, key string) string {
	raw, ok := metadata[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case *int64:
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func normalizeMetadata(event wodstrat.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			metadata[MetadataKeyActorType] = actorType
		}
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
