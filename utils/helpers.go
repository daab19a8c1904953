/*
Package utils provides helper functions for the briefing backend.
*/
package utils

import (
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()[:8]
}
