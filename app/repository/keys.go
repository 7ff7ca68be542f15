package repository

import (
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/CalSync/app/models"
)

const (
	EventKeyPrefix = "webhook_event:"
	dupKeyPrefix   = "webhook_dup:"
	traceKeyPrefix = "webhook_trace:"
	lockKeyPrefix  = "webhook_lock:"
	prefsKeyPrefix = "calendar_prefs:"
)

// TimeKeyedEventKey builds webhook_event:<provider>:<ownerId>:<receivedAtMillis>.
func TimeKeyedEventKey(p models.Provider, ownerID string, receivedAt time.Time) string {
	return EventKeyPrefix + string(p) + ":" + ownerID + ":" + strconv.FormatInt(receivedAt.UnixMilli(), 10)
}

// StableEventKey builds webhook_event:<provider>:<ownerId>:<objectId>:<aspectType>.
// Deliveries that share these attributes overwrite one record.
func StableEventKey(p models.Provider, ownerID, objectID, aspectType string) string {
	return EventKeyPrefix + string(p) + ":" + ownerID + ":" + objectID + ":" + aspectType
}

// ProviderFromEventKey extracts the provider segment of an event key.
func ProviderFromEventKey(key string) (models.Provider, bool) {
	if !strings.HasPrefix(key, EventKeyPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(key, EventKeyPrefix)
	segment, _, found := strings.Cut(rest, ":")
	if !found {
		return "", false
	}
	p := models.Provider(segment)
	if !p.IsSource() {
		return "", false
	}
	return p, true
}

func credentialKey(p models.Provider, internalUserID string) string {
	return string(p) + "_tokens:" + internalUserID
}

func mappingKey(p models.Provider, providerUserID string) string {
	return string(p) + "_user_mapping:" + providerUserID
}

func preferenceKey(internalUserID string) string {
	return prefsKeyPrefix + internalUserID
}

func duplicateKey(p models.Provider, ownerID, objectID, aspectType string) string {
	return dupKeyPrefix + string(p) + ":" + ownerID + ":" + objectID + ":" + aspectType
}

func traceKey(p models.Provider, objectID string) string {
	return traceKeyPrefix + string(p) + ":" + objectID
}

func lockKey(eventKey string) string {
	return lockKeyPrefix + eventKey
}
