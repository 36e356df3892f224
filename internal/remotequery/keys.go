// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remotequery

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// DefaultPrefix is the routing key prefix used when none is configured.
const DefaultPrefix = "/remotesql/query"

// sequence numbers every request issued in this process. It is never reset,
// so keys stay unique across Client instances sharing one transport.
var sequence atomic.Uint64

// nextSequence returns 0, 1, 2, ... across all clients in the process.
func nextSequence() uint64 { return sequence.Add(1) - 1 }

// RoutingKey builds the correlation key prefix + "/" + id.
func RoutingKey(prefix string, id uint64) string {
	return prefix + "/" + strconv.FormatUint(id, 10)
}

// IsQueryKey reports whether key belongs to the protocol under prefix.
func IsQueryKey(prefix, key string) bool {
	return strings.HasPrefix(key, prefix+"/")
}

// ParseKey extracts the sequence number from a key built by RoutingKey.
func ParseKey(prefix, key string) (uint64, bool) {
	if !IsQueryKey(prefix, key) {
		return 0, false
	}
	id, err := strconv.ParseUint(key[len(prefix)+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
