package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateEventKey derives a stable identity for an event from its name, date and venue.
// Two listings of the same show from different sources map to the same key.
func GenerateEventKey(name, date, venue string) string {
	input := fmt.Sprintf("%s|%s|%s", normalizeKeyPart(name), normalizeKeyPart(date), normalizeKeyPart(venue))
	hash := sha256.Sum256([]byte(input))
	return "evt_" + hex.EncodeToString(hash[:])[:8]
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// GenerateRefreshRunID creates a unique ID for a refresh run
func GenerateRefreshRunID(timestamp time.Time) string {
	return fmt.Sprintf("run_%s_%s", timestamp.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// GenerateSubscriptionID creates a unique ID for a subscription
func GenerateSubscriptionID() string {
	return "sub_" + uuid.NewString()
}

// WeekPK is the partition key a weekly snapshot is stored under
func WeekPK(week WeekRange) string {
	return "WEEK#" + week.Key()
}

// SubscriptionPK is the partition key a subscription is stored under
func SubscriptionPK(email string) string {
	return "SUB#" + strings.ToLower(strings.TrimSpace(email))
}

// Sort keys
const (
	SnapshotSK     = "SNAPSHOT"
	SubscriptionSK = "PROFILE"
)
