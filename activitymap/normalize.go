package activitymap

import (
	"maps"
	"strings"
	"time"

	auth "github.com/goliatone/go-wedding-auth"
)

const (
	// MetadataKeyUserType stores the user type of the account behind the event.
	MetadataKeyUserType = "user_type"
	// MetadataKeyOutcome is "success" or "failure".
	MetadataKeyOutcome = "outcome"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "account"
	defaultActorID    = "anonymous"
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
	objectIDResolver func(auth.ActivityEvent) string
	now              func() time.Time
}

// Normalize converts an auth.ActivityEvent into the normalized shape.
// The actor is the username; failed logins for blank usernames fall back
// to "anonymous".
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Username),
		options.actorFallback,
	)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction. The default uses the username.
func WithObjectIDResolver(resolver func(auth.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used when the event has no username.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time used for events without OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func resolveObjectID(event auth.ActivityEvent, resolver func(auth.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.Username)
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := maps.Clone(event.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	if event.UserType != "" {
		if _, exists := metadata[MetadataKeyUserType]; !exists {
			metadata[MetadataKeyUserType] = string(event.UserType)
		}
	}

	switch event.EventType {
	case auth.ActivityEventLoginSuccess, auth.ActivityEventRefreshSuccess:
		metadata[MetadataKeyOutcome] = "success"
	case auth.ActivityEventLoginFailure, auth.ActivityEventRefreshFailure:
		metadata[MetadataKeyOutcome] = "failure"
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
