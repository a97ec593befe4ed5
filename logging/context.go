package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugKey struct{}

// EnableDebugMode returns a context on which the C* logging methods log at debug level
// regardless of the logger level. An empty key is replaced by a random one.
func EnableDebugMode(ctx context.Context, key string) context.Context {
	if key == "" {
		key = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugKey{}, key)
}

// IsDebugMode returns whether ctx was created by EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return GetName(ctx) != ""
}

// GetName returns the key passed to EnableDebugMode, or "" if there is none.
func GetName(ctx context.Context) string {
	key, _ := ctx.Value(debugKey{}).(string)
	return key
}
